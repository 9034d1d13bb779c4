package session

import (
	"fmt"
	"sync/atomic"
)

// TurnGenerator hands out sequential turn ids for one session.
type TurnGenerator struct {
	counter uint64
}

func NewTurnGenerator() *TurnGenerator {
	return &TurnGenerator{}
}

func (g *TurnGenerator) Next(sessionId string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-turn-%d", sessionId, n)
}

// Count returns how many ids have been handed out.
func (g *TurnGenerator) Count() uint64 {
	return atomic.LoadUint64(&g.counter)
}
