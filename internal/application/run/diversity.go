package run

import (
	"sort"
	"sync"

	"github.com/turtacn/MolScore/internal/config"
	stypes "github.com/turtacn/MolScore/pkg/types/scoring"
)

// ─────────────────────────────────────────────────────────────────────────────
// Diversity filter
// ─────────────────────────────────────────────────────────────────────────────

// diversityFilter tracks how often each compound has scored above the
// configured threshold across the run.  Scores in a full bucket are zeroed
// so the sampler stops being rewarded for repeating itself.  A nil config
// or the NoFilter strategy passes everything through.
type diversityFilter struct {
	cfg *config.DiversityFilterConfig

	mu      sync.Mutex
	buckets map[string]int
}

func newDiversityFilter(cfg *config.DiversityFilterConfig) *diversityFilter {
	if cfg != nil && cfg.Name == "NoFilter" {
		cfg = nil
	}
	return &diversityFilter{
		cfg:     cfg,
		buckets: make(map[string]int),
	}
}

// Apply updates bucket occupancy in place and returns how many molecules
// were zeroed.  Scores below the threshold pass through untouched and do
// not occupy bucket space.
func (f *diversityFilter) Apply(scores []stypes.MoleculeScoreDTO) int {
	if f.cfg == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	filtered := 0
	for i := range scores {
		if scores[i].Total < f.cfg.MinScore {
			continue
		}
		key := scores[i].SMILES
		if f.buckets[key] >= f.cfg.BucketSize {
			scores[i].Total = 0
			filtered++
			continue
		}
		f.buckets[key]++
	}
	return filtered
}

// Size reports how many distinct compounds occupy buckets.
func (f *diversityFilter) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buckets)
}

// ─────────────────────────────────────────────────────────────────────────────
// Inception memory
// ─────────────────────────────────────────────────────────────────────────────

// MemoryEntry is one retained molecule with its best observed score.
type MemoryEntry struct {
	SMILES string
	Score  float64
}

// inceptionMemory keeps the highest-scoring molecules seen during the run,
// deduplicated by SMILES, sorted best first.  A nil config disables it.
type inceptionMemory struct {
	memorySize int
	sampleSize int

	mu      sync.Mutex
	entries []MemoryEntry
	index   map[string]int
}

func newInceptionMemory(cfg *config.InceptionConfig) *inceptionMemory {
	m := &inceptionMemory{index: make(map[string]int)}
	if cfg == nil {
		return m
	}
	m.memorySize = cfg.MemorySize
	m.sampleSize = cfg.SampleSize
	for _, s := range cfg.SMILES {
		m.add(s, 0)
	}
	return m
}

// Observe folds a step's scores into the memory.
func (m *inceptionMemory) Observe(scores []stypes.MoleculeScoreDTO) {
	if m.memorySize == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range scores {
		m.add(s.SMILES, s.Total)
	}
}

// add assumes the lock is held (or the memory is not yet shared).
func (m *inceptionMemory) add(smiles string, score float64) {
	if smiles == "" || m.memorySize == 0 {
		return
	}
	if i, ok := m.index[smiles]; ok {
		if score > m.entries[i].Score {
			m.entries[i].Score = score
			m.resort()
		}
		return
	}
	m.entries = append(m.entries, MemoryEntry{SMILES: smiles, Score: score})
	m.resort()
	if len(m.entries) > m.memorySize {
		evicted := m.entries[len(m.entries)-1]
		m.entries = m.entries[:len(m.entries)-1]
		delete(m.index, evicted.SMILES)
	}
}

func (m *inceptionMemory) resort() {
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.entries[i].Score > m.entries[j].Score
	})
	for i, e := range m.entries {
		m.index[e.SMILES] = i
	}
}

// TopK returns up to k of the best entries; k <= 0 uses the configured
// sample size.
func (m *inceptionMemory) TopK(k int) []MemoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k <= 0 {
		k = m.sampleSize
	}
	if k > len(m.entries) {
		k = len(m.entries)
	}
	out := make([]MemoryEntry, k)
	copy(out, m.entries[:k])
	return out
}

//Personal.AI order the ending
