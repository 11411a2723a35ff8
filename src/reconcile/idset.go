package reconcile

// IDSet tracks movement ids accepted during one scrape call. The same
// economic event can surface from both the transaction and the payment
// feed, and from both legs of an own-account transfer; the first converted
// transaction claims its ids, later collisions are dropped whole.
type IDSet struct {
	seen map[string]bool
}

func NewIDSet() *IDSet {
	return &IDSet{seen: make(map[string]bool)}
}

// Claim checks both ids and, only if neither has been seen, records both.
// Check and insert are a single step: a transaction is either accepted with
// all of its ids or rejected entirely.
func (s *IDSet) Claim(id1, id2 string) bool {
	if s.seen[id1] || s.seen[id2] {
		return false
	}
	s.seen[id1] = true
	s.seen[id2] = true
	return true
}

// Len reports how many distinct ids have been claimed.
func (s *IDSet) Len() int {
	return len(s.seen)
}
