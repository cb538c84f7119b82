/**
* Copyright 2018 Comcast Cable Communications Management, LLC
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You may obtain a copy of the License at
* http://www.apache.org/licenses/LICENSE-2.0
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
 */

package engines

import (
	"context"
	"time"

	"github.com/corehttp/txcore/internal/cache"
	"github.com/corehttp/txcore/internal/headers"
	"github.com/corehttp/txcore/internal/log"
	"github.com/corehttp/txcore/internal/tracing"
)

// CacheKey derives the storage key for a request: the method plus the
// effective URL. Two requests share a cached object exactly when both
// match.
func CacheKey(h *headers.HttpHeader) string {
	return h.Method.String() + ":" + h.URL.String()
}

// QueryCache looks key up in c and decodes the stored Document.
func QueryCache(ctx context.Context, c cache.Cache, key string) (*cache.Document, error) {
	_, span := tracing.NewChildSpan(ctx, "QueryCache")
	defer span.End()

	inflate := c.Configuration().Compression
	if inflate {
		key += ".sz"
	}

	b, err := c.Retrieve(key, false)
	if err != nil {
		return nil, err
	}

	if inflate {
		log.Debug("decompressing cached data", log.Pairs{"cacheKey": key})
		if inflated, derr := cache.Decompress(b); derr == nil {
			b = inflated
		}
	}

	d := &cache.Document{}
	if _, err := d.UnmarshalMsg(b); err != nil {
		return nil, err
	}
	return d, nil
}

// WriteCache encodes d and stores it under key with the given ttl.
func WriteCache(c cache.Cache, key string, d *cache.Document, ttl time.Duration) error {
	// Date is re-stamped at serve time; storing it would freeze it.
	dropHeader(d, headers.NameDate)

	b, err := d.MarshalMsg(nil)
	if err != nil {
		return err
	}

	if c.Configuration().Compression {
		key += ".sz"
		log.Debug("compressing cached data", log.Pairs{"cacheKey": key})
		b = cache.Compress(b)
	}

	return c.Store(key, b, ttl)
}

func dropHeader(d *cache.Document, name string) {
	names := d.HeaderNames[:0]
	values := d.HeaderValues[:0]
	for i := range d.HeaderNames {
		if d.HeaderNames[i] == name {
			continue
		}
		names = append(names, d.HeaderNames[i])
		values = append(values, d.HeaderValues[i])
	}
	d.HeaderNames = names
	d.HeaderValues = values
}
