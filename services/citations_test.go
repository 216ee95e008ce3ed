package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paperbase/models"
)

// fakeStore hält Papers und Kanten im Speicher und implementiert
// PaperGetter und CitationStore für Tests.
type fakeStore struct {
	papers map[uint]*models.Paper
	edges  []models.Citation
	err    error
}

func (f *fakeStore) GetPaperByID(_ context.Context, id uint) (*models.Paper, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.papers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) Citing(_ context.Context, paperID uint) ([]models.Citation, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Citation
	for _, e := range f.edges {
		if e.CitedPaperID == paperID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) CitedBy(_ context.Context, paperID uint) ([]models.Citation, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Citation
	for _, e := range f.edges {
		if e.CitingPaperID == paperID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) addPaper(id uint, citationCount int) {
	f.papers[id] = &models.Paper{ID: id, Title: "Paper", CitationCount: citationCount}
}

func (f *fakeStore) addEdge(citing, cited uint) {
	f.edges = append(f.edges, models.Citation{CitingPaperID: citing, CitedPaperID: cited, Strength: 1.0})
}

func newFakeStore() *fakeStore {
	return &fakeStore{papers: make(map[uint]*models.Paper)}
}

func newTestService(store *fakeStore) *CitationService {
	return NewCitationService(store, store, zap.NewNop())
}

func edgeSet(edges []NetworkEdge) map[[2]uint]bool {
	set := make(map[[2]uint]bool)
	for _, e := range edges {
		set[[2]uint{e.Source, e.Target}] = true
	}
	return set
}

func nodeByID(t *testing.T, n *CitationNetwork, id uint) NetworkNode {
	t.Helper()
	for _, node := range n.Nodes {
		if node.ID == id {
			return node
		}
	}
	t.Fatalf("node %d not in network", id)
	return NetworkNode{}
}

// Szenario aus der Visualisierung: A wird von B und C zitiert, B von D.
func scenarioStore() *fakeStore {
	store := newFakeStore()
	for id := uint(1); id <= 4; id++ {
		store.addPaper(id, 0)
	}
	store.addEdge(2, 1) // B cites A
	store.addEdge(3, 1) // C cites A
	store.addEdge(4, 2) // D cites B
	return store
}

func TestBuildNetworkScenario(t *testing.T) {
	svc := newTestService(scenarioStore())

	network, err := svc.BuildNetwork(context.Background(), 1, 2, 10)
	require.NoError(t, err)

	require.Len(t, network.Nodes, 4)
	assert.Equal(t, 0, nodeByID(t, network, 1).Depth)
	assert.Equal(t, 1, nodeByID(t, network, 2).Depth)
	assert.Equal(t, 1, nodeByID(t, network, 3).Depth)
	assert.Equal(t, 2, nodeByID(t, network, 4).Depth)

	edges := edgeSet(network.Edges)
	assert.Len(t, network.Edges, 3)
	assert.True(t, edges[[2]uint{2, 1}])
	assert.True(t, edges[[2]uint{3, 1}])
	assert.True(t, edges[[2]uint{4, 2}])

	assert.Equal(t, 4, network.TotalPapers)
	assert.Equal(t, 3, network.TotalCitations)
}

func TestBuildNetworkDepthZero(t *testing.T) {
	svc := newTestService(scenarioStore())

	network, err := svc.BuildNetwork(context.Background(), 1, 0, 10)
	require.NoError(t, err)

	require.Len(t, network.Nodes, 1)
	assert.Equal(t, uint(1), network.Nodes[0].ID)
	assert.True(t, network.Nodes[0].IsCenter)
	assert.Empty(t, network.Edges)
}

func TestBuildNetworkCenterFlag(t *testing.T) {
	svc := newTestService(scenarioStore())

	network, err := svc.BuildNetwork(context.Background(), 1, 2, 10)
	require.NoError(t, err)

	centers := 0
	for _, n := range network.Nodes {
		if n.IsCenter {
			centers++
			assert.Equal(t, uint(1), n.ID)
			assert.Equal(t, 0, n.Depth)
		}
	}
	assert.Equal(t, 1, centers)
}

func TestBuildNetworkNodeBound(t *testing.T) {
	// Stern: Zentrum mit 20 Zitierern
	store := newFakeStore()
	store.addPaper(1, 0)
	for id := uint(2); id <= 21; id++ {
		store.addPaper(id, 0)
		store.addEdge(id, 1)
	}
	svc := newTestService(store)

	for _, maxPapers := range []int{1, 3, 10, 50} {
		network, err := svc.BuildNetwork(context.Background(), 1, 2, maxPapers)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(network.Nodes), maxPapers)
		for _, n := range network.Nodes {
			assert.LessOrEqual(t, n.Depth, 2)
		}
	}
}

func TestBuildNetworkEdgeClosure(t *testing.T) {
	// Das Knoten-Limit greift zwischen Enqueue und Dequeue: Kanten zu nie
	// aufgenommenen Nachbarn dürfen nicht im Ergebnis auftauchen.
	store := newFakeStore()
	store.addPaper(1, 0)
	for id := uint(2); id <= 6; id++ {
		store.addPaper(id, 0)
		store.addEdge(id, 1)
	}
	svc := newTestService(store)

	network, err := svc.BuildNetwork(context.Background(), 1, 2, 3)
	require.NoError(t, err)

	inNetwork := make(map[uint]bool)
	for _, n := range network.Nodes {
		inNetwork[n.ID] = true
	}
	for _, e := range network.Edges {
		assert.True(t, inNetwork[e.Source], "edge source %d not in node set", e.Source)
		assert.True(t, inNetwork[e.Target], "edge target %d not in node set", e.Target)
	}
}

func TestBuildNetworkDeterministic(t *testing.T) {
	svc := newTestService(scenarioStore())

	first, err := svc.BuildNetwork(context.Background(), 1, 2, 10)
	require.NoError(t, err)
	second, err := svc.BuildNetwork(context.Background(), 1, 2, 10)
	require.NoError(t, err)

	firstIDs := make(map[uint]int)
	secondIDs := make(map[uint]int)
	for _, n := range first.Nodes {
		firstIDs[n.ID] = n.Depth
	}
	for _, n := range second.Nodes {
		secondIDs[n.ID] = n.Depth
	}
	assert.Equal(t, firstIDs, secondIDs)
	assert.Equal(t, edgeSet(first.Edges), edgeSet(second.Edges))
}

func TestBuildNetworkCenterNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.BuildNetwork(context.Background(), 99, 2, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBuildNetworkStoreFailure(t *testing.T) {
	store := scenarioStore()
	svc := newTestService(store)

	// Fehler erst nach dem Zentrums-Lookup einschleusen
	network, err := svc.BuildNetwork(context.Background(), 1, 2, 10)
	require.NoError(t, err)
	require.NotNil(t, network)

	store.err = errors.New("connection reset")
	_, err = svc.BuildNetwork(context.Background(), 1, 2, 10)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestBuildNetworkSelfCitation(t *testing.T) {
	store := newFakeStore()
	store.addPaper(1, 0)
	store.addEdge(1, 1)
	svc := newTestService(store)

	network, err := svc.BuildNetwork(context.Background(), 1, 3, 10)
	require.NoError(t, err)

	// Visited-Set verhindert Endlosschleife; die Schleifenkante bleibt drin
	require.Len(t, network.Nodes, 1)
	require.Len(t, network.Edges, 1)
	assert.Equal(t, uint(1), network.Edges[0].Source)
	assert.Equal(t, uint(1), network.Edges[0].Target)
}

func TestBuildNetworkContextTruncated(t *testing.T) {
	store := newFakeStore()
	store.addPaper(1, 0)
	store.addPaper(2, 0)
	longContext := ""
	for i := 0; i < 30; i++ {
		longContext += "zitatkontext"
	}
	store.edges = append(store.edges, models.Citation{
		CitingPaperID: 2, CitedPaperID: 1, Strength: 0.7, Context: longContext,
	})
	svc := newTestService(store)

	network, err := svc.BuildNetwork(context.Background(), 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, network.Edges, 1)
	assert.Len(t, []rune(network.Edges[0].Context), contextSnippetLen)
	assert.Equal(t, 0.7, network.Edges[0].Strength)
}

func TestCalculateInfluenceHIndex(t *testing.T) {
	// Zitierer mit citation_counts [10 8 5 4 3] ergeben h-Index 4
	store := newFakeStore()
	store.addPaper(1, 0)
	counts := []int{10, 8, 5, 4, 3}
	for i, c := range counts {
		id := uint(i + 2)
		store.addPaper(id, c)
		store.addEdge(id, 1)
	}
	svc := newTestService(store)

	metrics, err := svc.CalculateInfluence(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5, metrics.DirectCitations)
	assert.Equal(t, 4, metrics.HIndex)
}

func TestCalculateInfluenceZeroCitations(t *testing.T) {
	store := newFakeStore()
	store.addPaper(1, 0)
	svc := newTestService(store)

	metrics, err := svc.CalculateInfluence(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.DirectCitations)
	assert.Equal(t, 0, metrics.SecondOrderCitations)
	assert.Equal(t, 0, metrics.HIndex)
	assert.Equal(t, 0.0, metrics.InfluenceScore)
	assert.Equal(t, 0.0, metrics.CitationRatePerYear)
}

func TestCalculateInfluenceScoreBounded(t *testing.T) {
	// Auch bei großen Eingaben bleibt der Score in [0,1]
	store := newFakeStore()
	store.addPaper(1, 0)
	for id := uint(2); id <= 400; id++ {
		store.addPaper(id, 1000)
		store.addEdge(id, 1)
	}
	svc := newTestService(store)

	metrics, err := svc.CalculateInfluence(context.Background(), 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, metrics.InfluenceScore, 0.0)
	assert.LessOrEqual(t, metrics.InfluenceScore, 1.0)
	assert.Equal(t, 1.0, metrics.InfluenceScore)
}

func TestCalculateInfluenceSecondOrderCountsEdges(t *testing.T) {
	// D zitiert B und C, die beide A zitieren: D wird doppelt gezählt
	store := newFakeStore()
	for id := uint(1); id <= 4; id++ {
		store.addPaper(id, 0)
	}
	store.addEdge(2, 1) // B cites A
	store.addEdge(3, 1) // C cites A
	store.addEdge(4, 2) // D cites B
	store.addEdge(4, 3) // D cites C
	svc := newTestService(store)

	metrics, err := svc.CalculateInfluence(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.DirectCitations)
	assert.Equal(t, 2, metrics.SecondOrderCitations)
}

func TestCalculateInfluenceCitationRate(t *testing.T) {
	store := newFakeStore()
	pubDate := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	store.papers[1] = &models.Paper{ID: 1, Title: "Paper", PublicationDate: &pubDate}
	for id := uint(2); id <= 9; id++ {
		store.addPaper(id, 0)
		store.addEdge(id, 1)
	}
	svc := newTestService(store)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }

	metrics, err := svc.CalculateInfluence(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, metrics.PublicationAgeYears)
	assert.Equal(t, 2.0, metrics.CitationRatePerYear)
}

func TestCalculateInfluenceNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.CalculateInfluence(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCalculateInfluencePlaceholdersZero(t *testing.T) {
	store := scenarioStore()
	svc := newTestService(store)

	metrics, err := svc.CalculateInfluence(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, metrics.PercentileRank)
	assert.Equal(t, 0.0, metrics.FieldNormalizedScore)
}

func TestCitingAndReferencedPapers(t *testing.T) {
	store := scenarioStore()
	svc := newTestService(store)

	citing, err := svc.CitingPapers(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Len(t, citing, 2)

	refs, err := svc.ReferencedPapers(context.Background(), 2, 20)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, uint(1), refs[0].PaperID)

	limited, err := svc.CitingPapers(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestNeighborSummariesNonPositiveLimit(t *testing.T) {
	svc := newTestService(scenarioStore())

	// Unplausible Limits fallen auf den Default zurück
	for _, limit := range []int{0, -1} {
		citing, err := svc.CitingPapers(context.Background(), 1, limit)
		require.NoError(t, err)
		assert.Len(t, citing, 2)

		refs, err := svc.ReferencedPapers(context.Background(), 2, limit)
		require.NoError(t, err)
		assert.Len(t, refs, 1)
	}
}
