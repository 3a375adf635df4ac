package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"chatbot-engine-be/pkg/rag/search"
	"chatbot-engine-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(topic string, keywords ...string) store.KnowledgeEntry {
	return store.KnowledgeEntry{
		Topic:      topic,
		Keywords:   keywords,
		Guidance:   "guidance",
		RiskLevel:  store.RiskLow,
		Confidence: 0.6,
		Domain:     "general",
	}
}

func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func TestKnowledgeRepository_InitCreatesFiles(t *testing.T) {
	dir := t.TempDir()

	repo, err := NewKnowledgeRepository(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, CoreFile))
	assert.FileExists(t, filepath.Join(dir, ExpandedFile))
	assert.DirExists(t, filepath.Join(dir, backupDir))
	assert.NotNil(t, repo.All())
	assert.Empty(t, repo.All())
}

func TestKnowledgeRepository_AppendAndReload(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewKnowledgeRepository(dir)
	require.NoError(t, err)
	repo.now = tickingClock()

	require.NoError(t, repo.AppendCore([]store.KnowledgeEntry{sample("core one", "a")}))
	require.NoError(t, repo.AppendExpanded([]store.KnowledgeEntry{sample("exp one", "b"), sample("exp two", "c")}))

	all := repo.All()
	require.Len(t, all, 3)
	assert.Equal(t, "core one", all[0].Topic)
	assert.Equal(t, "exp two", all[2].Topic)

	reopened, err := NewKnowledgeRepository(dir)
	require.NoError(t, err)
	assert.Equal(t, all, reopened.All())
}

func TestKnowledgeRepository_SnapshotIsolation(t *testing.T) {
	repo, err := NewKnowledgeRepository(t.TempDir())
	require.NoError(t, err)
	repo.now = tickingClock()

	before := repo.All()
	require.NoError(t, repo.AppendExpanded([]store.KnowledgeEntry{sample("new", "x")}))

	assert.Empty(t, before, "earlier snapshot must not change")
	assert.Len(t, repo.All(), 1)
}

func TestKnowledgeRepository_KeepsFiveBackups(t *testing.T) {
	repo, err := NewKnowledgeRepository(t.TempDir())
	require.NoError(t, err)
	repo.now = tickingClock()

	for i := 0; i < 8; i++ {
		require.NoError(t, repo.AppendExpanded([]store.KnowledgeEntry{sample("t", "k")}))
	}

	backups := repo.Backups("expanded_knowledge")
	assert.Len(t, backups, keepBackups)
	assert.Empty(t, repo.Backups("core_knowledge"))
	assert.Len(t, repo.All(), 8)
}

func TestKnowledgeRepository_CorruptFileDegrades(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CoreFile), []byte("{not json"), 0o644))
	data, _ := json.Marshal([]store.KnowledgeEntry{sample("ok", "k")})
	require.NoError(t, os.WriteFile(filepath.Join(dir, ExpandedFile), data, 0o644))

	repo, err := NewKnowledgeRepository(dir)
	require.NoError(t, err)
	assert.Error(t, repo.LoadError())
	require.Len(t, repo.All(), 1)
	assert.Equal(t, "ok", repo.All()[0].Topic)

	require.NoError(t, os.WriteFile(filepath.Join(dir, CoreFile), []byte("[]"), 0o644))
	require.NoError(t, repo.Reload())
	assert.NoError(t, repo.LoadError())
}

func TestKnowledgeRepository_ConcurrentReaders(t *testing.T) {
	repo, err := NewKnowledgeRepository(t.TempDir())
	require.NoError(t, err)
	repo.now = tickingClock()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				entries := repo.All()
				for _, e := range entries {
					_ = e.Topic
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.AppendExpanded([]store.KnowledgeEntry{sample("t", "k")}))
	}
	wg.Wait()
	assert.Len(t, repo.All(), 5)
}

func TestKnowledgeRepository_IngestThenRank(t *testing.T) {
	repo, err := NewKnowledgeRepository(t.TempDir())
	require.NoError(t, err)
	repo.now = tickingClock()

	require.NoError(t, repo.AppendExpanded([]store.KnowledgeEntry{
		sample("heat rash", "itchy bumps", "sweating"),
		sample("sunburn", "red skin"),
	}))

	ranked := search.NewRanker(search.DefaultWeights()).Rank("I think I have heat rash from sweating", repo.All(), 5)
	require.NotEmpty(t, ranked)
	assert.Equal(t, "heat rash", ranked[0].Topic)
}

func TestRuleRepository(t *testing.T) {
	dir := t.TempDir()

	repo, err := NewRuleRepository(dir)
	require.NoError(t, err)

	rules, err := repo.Load()
	require.NoError(t, err)
	assert.Contains(t, rules, "# Chatbot Rules")

	require.NoError(t, repo.Update("Only answer about skin."))
	rules, err = repo.Load()
	require.NoError(t, err)
	assert.Equal(t, "Only answer about skin.", rules)

	// a deleted file is recreated with defaults
	require.NoError(t, os.Remove(filepath.Join(dir, RulesFile)))
	rules, err = repo.Load()
	require.NoError(t, err)
	assert.Contains(t, rules, "# Chatbot Rules")

	require.NoError(t, repo.Update("   "))
	rules, _ = repo.Load()
	assert.Equal(t, FallbackRules, rules)
}
