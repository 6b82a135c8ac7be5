package optimize

import (
	"golang.org/x/crypto/blake2b"
)

// bucketKey places a record in the equality index. Equal records always share
// a key; records sharing a key are still compared in full.
type bucketKey struct {
	digest [blake2b.Size256]byte
	width  int64
	height int64
}

func keyOf(rec *ImageRecord) bucketKey {
	return bucketKey{
		digest: blake2b.Sum256(rec.Content),
		width:  rec.Width,
		height: rec.Height,
	}
}
