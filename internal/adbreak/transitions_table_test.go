// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package adbreak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTransitionTable_NoDuplicates(t *testing.T) {
	seen := map[Transition]struct{}{}
	for _, tr := range transitionsTable {
		_, dup := seen[tr]
		require.False(t, dup, "duplicate transition: %s -> %s on %s", tr.From, tr.To, tr.Event)
		require.NotEqual(t, tr.From, tr.To, "same-kind edges are implicit")
		seen[tr] = struct{}{}
	}
}

// Every state reachable from the initial states must only take edges the
// table lists, and every listed edge must be taken by some state.
func TestTransitionTable_Coverage(t *testing.T) {
	configs := []Settings{
		{Timeout: time.Second},
		{Timeout: time.Second, PrerollTimeout: time.Second, PostrollTimeout: time.Second},
		{AllowAutoplay: true, Autoplay: true},
		{StitchedAds: true},
	}
	used := map[Transition]struct{}{}
	for _, cfg := range configs {
		start := Initial(cfg).Next
		visited := map[State]struct{}{start: {}}
		queue := []State{start}

		for len(queue) > 0 {
			from := queue[0]
			queue = queue[1:]
			for _, ev := range AllEvents() {
				s, e := from, ev
				step := Next(s, e, cfg)
				for {
					require.True(t, Allowed(s.Kind, step.Next.Kind, e),
						"unlisted edge %s -> %s on %s", s.Kind, step.Next.Kind, e)
					if s.Kind != step.Next.Kind {
						used[Transition{From: s.Kind, To: step.Next.Kind, Event: e}] = struct{}{}
					}
					if step.Follow == EvNone {
						break
					}
					s, e = step.Next, step.Follow
					step = Next(s, e, cfg)
				}
				if _, ok := visited[step.Next]; !ok {
					visited[step.Next] = struct{}{}
					queue = append(queue, step.Next)
				}
			}
		}
	}
	for _, tr := range transitionsTable {
		_, ok := used[tr]
		require.True(t, ok, "edge never taken: %s -> %s on %s", tr.From, tr.To, tr.Event)
	}
}

func TestAllowed(t *testing.T) {
	require.True(t, Allowed(KindPreroll, KindPreroll, EvContentChanged))
	require.True(t, Allowed(KindBeforePreroll, KindPreroll, EvPlay))
	require.False(t, Allowed(KindBeforePreroll, KindLinearAdBreak, EvStartLinearAdMode))
	require.False(t, Allowed(KindAdsDone, KindLinearAdBreak, EvStartLinearAdMode))
}
