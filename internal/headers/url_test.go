package headers

import "testing"

func TestUrlDefaultPort(t *testing.T) {
	u := NewURL()
	u.SetScheme(SchemeHTTPS)
	if p := u.Port(); p != 443 {
		t.Fatalf("default https port = %d, want 443", p)
	}
	u.SetPort(8443)
	if p := u.Port(); p != 8443 {
		t.Fatalf("explicit port = %d, want 8443", p)
	}
}

func TestUrlSchemeChangeDoesNotAffectExplicitPort(t *testing.T) {
	u := NewURL()
	u.SetScheme(SchemeHTTP)
	u.SetPort(8080)
	u.SetScheme(SchemeHTTPS)
	if p := u.Port(); p != 8080 {
		t.Fatalf("explicit port should survive scheme change, got %d", p)
	}
}

func TestUrlUpgraded(t *testing.T) {
	cases := map[Scheme]Scheme{
		SchemeHTTP:  SchemeWS,
		SchemeHTTPS: SchemeWSS,
		SchemeWS:    SchemeHTTP,
		SchemeWSS:   SchemeHTTPS,
	}
	for in, want := range cases {
		if got := in.Upgraded(); got != want {
			t.Fatalf("%v.Upgraded() = %v, want %v", in, got, want)
		}
	}
}

func TestUrlCopyIsIndependent(t *testing.T) {
	u := NewURL()
	u.Host = []byte("example.test")
	u.Path = "/a"
	c := u.Copy()
	c.Host[0] = 'X'
	c.Path = "/b"
	if string(u.Host) != "example.test" || u.Path != "/a" {
		t.Fatal("Copy should be independent of the original")
	}
}
