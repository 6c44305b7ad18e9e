package signalpipeline

// confluence accumulates the fixed and signed contributions that make up a
// signal's 0-100 score, along with the human-readable reasons behind them.
type confluence struct {
	score   int
	reasons []string
}

func (c *confluence) credit(points int, label string) {
	c.score += points
	c.reasons = append(c.reasons, label)
}

func (c *confluence) signed(points int, label string) {
	c.score += points
	if points != 0 {
		c.reasons = append(c.reasons, label)
	}
}

func (c *confluence) total() int {
	if c.score > 100 {
		return 100
	}
	if c.score < 0 {
		return 0
	}
	return c.score
}
