// Package s3 provides a kvstore.Store backed by Amazon S3.
//
// Each key maps to one object under a configurable prefix. S3 puts are
// atomic per object, which is all the manager needs: it serializes writes
// itself.
package s3
