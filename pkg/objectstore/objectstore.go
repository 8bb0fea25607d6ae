// Package objectstore keeps uploaded images: on local disk or in a MinIO
// bucket, with the mirror's image cache as the last resort.
package objectstore

import "context"

// Store puts objects under a key and knows their public URL.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
}
