package game

// Metrics is the scoring surface exposed for one episode.
type Metrics struct {
	Reward              float64 `json:"reward"` // 0.25 per found group
	MistakesUsed        float64 `json:"mistakesUsed"`
	GroupsFound         float64 `json:"groupsFound"`
	AvgDifficultySolved float64 `json:"avgDifficultySolved"` // 0 when nothing solved
}

// Score computes the reward and auxiliary metrics from a state.
func Score(s State) Metrics {
	m := Metrics{
		Reward:       0.25 * float64(len(s.FoundGroups)),
		MistakesUsed: float64(s.Mistakes),
		GroupsFound:  float64(len(s.FoundGroups)),
	}
	if n := len(s.FoundGroups); n > 0 {
		sum := 0
		for _, g := range s.FoundGroups {
			sum += g.Level
		}
		m.AvgDifficultySolved = float64(sum) / float64(n)
	}
	return m
}

// Summary aggregates metrics over many episodes.
type Summary struct {
	Episodes int     `json:"episodes"`
	Wins     int     `json:"wins"`
	Mean     Metrics `json:"mean"`
}

// Summarize averages per-episode metrics; won counts terminal wins.
func Summarize(ms []Metrics, won []bool) Summary {
	out := Summary{Episodes: len(ms)}
	if len(ms) == 0 {
		return out
	}
	for i, m := range ms {
		out.Mean.Reward += m.Reward
		out.Mean.MistakesUsed += m.MistakesUsed
		out.Mean.GroupsFound += m.GroupsFound
		out.Mean.AvgDifficultySolved += m.AvgDifficultySolved
		if i < len(won) && won[i] {
			out.Wins++
		}
	}
	n := float64(len(ms))
	out.Mean.Reward /= n
	out.Mean.MistakesUsed /= n
	out.Mean.GroupsFound /= n
	out.Mean.AvgDifficultySolved /= n
	return out
}
