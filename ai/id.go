package ai

import (
	"time"

	hashids "github.com/speps/go-hashids"
)

var hasher = func() *hashids.HashIDData {
	h := hashids.NewData()
	h.Salt = "piano"
	h.MinLength = 8
	return h
}()

// RunID names a generation run after its count, window length and
// random seed
func RunID(count, window int, seed int64) string {
	h, err := hashids.NewWithData(hasher)
	if err != nil {
		return ""
	}
	e, _ := h.Encode([]int{count, window, int(seed & 0x7fffffff)})
	return e
}

func newSeed() int64 {
	return time.Now().UnixNano()
}
