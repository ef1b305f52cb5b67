// Package cache provides the TTL and LRU bounded caches that sit in front of
// the n8n API.
//
// Manager is generic over the cached value. Entries expire lazily on read
// and are swept periodically once Start is called. When a Store is
// configured the cache is loaded at construction, saved after a quiet period
// following each mutation, and saved synchronously by Stop. Two stores are
// provided: FileStore (one JSON file per cache) and RedisStore.
//
// Loader adds read-through loading with concurrent misses collapsed into a
// single call, and DefaultKeyer derives keys from an operation name and its
// parameters.
package cache
