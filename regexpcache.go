package onestore

import (
	"regexp"
	"sync"
)

// regexpCache compiles each rule pattern once; recipes are registered a
// handful of times at startup but matched on every encode/decode.
var (
	regexpCacheMu sync.RWMutex
	regexpCache   = map[string]*regexp.Regexp{}
)

func regexpMatch(pattern, s string) (bool, error) {
	regexpCacheMu.RLock()
	re, ok := regexpCache[pattern]
	regexpCacheMu.RUnlock()
	if !ok {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return false, err
		}
		regexpCacheMu.Lock()
		regexpCache[pattern] = compiled
		regexpCacheMu.Unlock()
		re = compiled
	}
	return re.MatchString(s), nil
}
