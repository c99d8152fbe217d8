// Package namemap loads the optional spreadsheet-name to display-name map.
package namemap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"catalogsync/internal/catalog"
	"catalogsync/internal/config"
	"catalogsync/internal/logging"
)

// ErrInvalidMap is returned when a stored map is not a flat string object.
var ErrInvalidMap = errors.New("invalid name map")

// Store loads a name map.
type Store interface {
	Load(ctx context.Context) (catalog.NameMap, error)
}

const schemaURL = "https://catalogsync.local/schemas/namemap.schema.json"

const mapSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "propertyNames": {"minLength": 1},
  "additionalProperties": {"type": "string"}
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(mapSchema)); err != nil {
		panic(fmt.Sprintf("namemap schema load failed: %v", err))
	}
	return c.MustCompile(schemaURL)
}

// Parse validates and decodes a JSON name map.
func Parse(data []byte) (catalog.NameMap, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}
	m := make(catalog.NameMap)
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}
	return m, nil
}

// FileStore reads a JSON object from disk. A missing file is an empty map.
type FileStore struct {
	Path string
}

// Load implements Store.
func (s FileStore) Load(ctx context.Context) (catalog.NameMap, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.CatalogDebug("name map %s not found, using identity", s.Path)
			return catalog.NameMap{}, nil
		}
		return nil, fmt.Errorf("failed to read name map: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	logging.Catalog("loaded %d name mappings from %s", len(m), s.Path)
	return m, nil
}

// RedisStore reads the map from a Redis hash.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to a redis:// URL.
func NewRedisStore(url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: name map redis url: %v", config.ErrInvalid, err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return &RedisStore{client: redis.NewClient(opts), key: key}, nil
}

// Load implements Store. A missing hash is an empty map.
func (s *RedisStore) Load(ctx context.Context) (catalog.NameMap, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis name map %s: %w", s.key, err)
	}
	m := make(catalog.NameMap, len(fields))
	for k, v := range fields {
		if strings.TrimSpace(k) == "" {
			continue
		}
		m[k] = v
	}
	logging.Catalog("loaded %d name mappings from redis key %s", len(m), s.key)
	return m, nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Open returns the configured store: Redis when a URL is set, the JSON file
// otherwise, nil when neither is configured.
func Open(cfg config.NamesConfig) (Store, error) {
	if cfg.RedisURL != "" {
		key := cfg.RedisKey
		if key == "" {
			key = "catalogsync:names"
		}
		return NewRedisStore(cfg.RedisURL, key)
	}
	if cfg.File != "" {
		return FileStore{Path: cfg.File}, nil
	}
	return nil, nil
}

// LoadOrEmpty loads from s, treating a nil store as an empty map.
func LoadOrEmpty(ctx context.Context, s Store) (catalog.NameMap, error) {
	if s == nil {
		return catalog.NameMap{}, nil
	}
	return s.Load(ctx)
}
