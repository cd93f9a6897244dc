package crawl

// Queue admits each discovered URL once, comparing normalized forms.
type Queue struct {
	seen map[string]bool
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{seen: make(map[string]bool)}
}

// Add records url unless its normalized form was added before.
// It reports whether the URL was new.
func (q *Queue) Add(url string) bool {
	key := NormalizeURL(url)
	if q.seen[key] {
		return false
	}
	q.seen[key] = true
	return true
}
