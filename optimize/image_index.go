package optimize

import "github.com/wudi/pdfdedup/ir/raw"

// imageClass groups references whose records are equal. The first record
// added is the canonical member; duplicates lists the rest in order.
type imageClass struct {
	canonical  *ImageRecord
	duplicates []raw.ObjectRef
}

func (c *imageClass) size() int { return 1 + len(c.duplicates) }

// equalityIndex assigns records to classes in insertion order.
type equalityIndex struct {
	buckets map[bucketKey][]*imageClass
	classes []*imageClass
}

func newEqualityIndex() *equalityIndex {
	return &equalityIndex{buckets: make(map[bucketKey][]*imageClass)}
}

// add files rec under the first existing class whose canonical record equals
// it, or opens a new class. Invalid records always open a new class.
func (x *equalityIndex) add(rec *ImageRecord) {
	if !rec.Valid {
		x.classes = append(x.classes, &imageClass{canonical: rec})
		return
	}
	key := keyOf(rec)
	for _, c := range x.buckets[key] {
		if c.canonical.Equal(rec) {
			c.duplicates = append(c.duplicates, rec.Origin)
			return
		}
	}
	c := &imageClass{canonical: rec}
	x.buckets[key] = append(x.buckets[key], c)
	x.classes = append(x.classes, c)
}

func classify(records []*ImageRecord) []*imageClass {
	x := newEqualityIndex()
	for _, rec := range records {
		x.add(rec)
	}
	return x.classes
}
