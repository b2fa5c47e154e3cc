// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import "github.com/syndtr/goleveldb/leveldb/util"

// Bucket provides logical bucket for kv store, by prefixing keys.
type Bucket string

type bucketGetPutter struct {
	b   Bucket
	src GetPutter
}

// NewStore creates a bucket store from the source store.
func (b Bucket) NewStore(src GetPutter) GetPutter {
	return &bucketGetPutter{b, src}
}

func (g *bucketGetPutter) makeKey(key []byte) []byte {
	return append(append(make([]byte, 0, len(g.b)+len(key)), g.b...), key...)
}

func (g *bucketGetPutter) Get(key []byte) ([]byte, error) {
	return g.src.Get(g.makeKey(key))
}

func (g *bucketGetPutter) Has(key []byte) (bool, error) {
	return g.src.Has(g.makeKey(key))
}

func (g *bucketGetPutter) IsNotFound(err error) bool {
	return g.src.IsNotFound(err)
}

func (g *bucketGetPutter) Put(key, value []byte) error {
	return g.src.Put(g.makeKey(key), value)
}

func (g *bucketGetPutter) Delete(key []byte) error {
	return g.src.Delete(g.makeKey(key))
}

func (g *bucketGetPutter) NewBatch() Batch {
	return &bucketBatch{g.b, g.src.NewBatch()}
}

func (g *bucketGetPutter) NewIterator(r Range) Iterator {
	r.Start = g.makeKey(r.Start)
	if len(r.Limit) == 0 {
		r.Limit = util.BytesPrefix([]byte(g.b)).Limit
	} else {
		r.Limit = g.makeKey(r.Limit)
	}
	return &bucketIterator{g.b, g.src.NewIterator(r)}
}

type bucketBatch struct {
	b   Bucket
	src Batch
}

func (b *bucketBatch) makeKey(key []byte) []byte {
	return append(append(make([]byte, 0, len(b.b)+len(key)), b.b...), key...)
}

func (b *bucketBatch) Put(key, value []byte) error {
	return b.src.Put(b.makeKey(key), value)
}

func (b *bucketBatch) Delete(key []byte) error {
	return b.src.Delete(b.makeKey(key))
}

func (b *bucketBatch) NewBatch() Batch { return b }

func (b *bucketBatch) Len() int { return b.src.Len() }

func (b *bucketBatch) Write() error { return b.src.Write() }

type bucketIterator struct {
	b   Bucket
	src Iterator
}

func (i *bucketIterator) Next() bool { return i.src.Next() }

func (i *bucketIterator) Release() { i.src.Release() }

func (i *bucketIterator) Error() error { return i.src.Error() }

// Key strips the bucket prefix.
func (i *bucketIterator) Key() []byte { return i.src.Key()[len(i.b):] }

func (i *bucketIterator) Value() []byte { return i.src.Value() }
