package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChristianF88/realtyx/aggregate"
	"github.com/ChristianF88/realtyx/filter"
	"github.com/ChristianF88/realtyx/ingestor"
	"github.com/ChristianF88/realtyx/navigation"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)

func scenario() *ingestor.Dataset {
	recs := []ingestor.Record{
		ingestor.NewRecord(1, "X", "A", 100, 10),
		ingestor.NewRecord(2, "X", "A", 300, 10),
		ingestor.NewRecord(3, "Y", "B", 200, 20),
	}
	for i := range recs {
		recs[i].Neighbourhood = 5
		recs[i].Connectivity = 5
		recs[i].Satisfaction = 5
	}
	return &ingestor.Dataset{Records: recs, TotalRows: 4, Rejected: 1}
}

func TestRun_World(t *testing.T) {
	ds := scenario()
	m := RunDataset(ds, DefaultView())

	assert.Equal(t, aggregate.DepthCountry, m.Depth)
	require.Len(t, m.Groups, 2)
	assert.Equal(t, "X", m.Groups[0].Group.Key.Country)
	assert.False(t, m.BackEnabled)
	assert.Equal(t, 3, m.Filtered)
	assert.Equal(t, 1, m.Rejected)
	assert.Empty(t, m.Detail.Top, "no detail at world level without focus")
	assert.True(t, m.Available.HasCity("X", "A"))
	for _, g := range m.Groups {
		assert.GreaterOrEqual(t, g.Color, 0.0)
		assert.LessOrEqual(t, g.Color, 1.0)
		assert.NotEmpty(t, g.Hex)
	}
}

func TestRun_CityDetail(t *testing.T) {
	ds := scenario()
	v := DefaultView()

	tr, err := navigation.SelectCountry(v.Nav, "X", RunDataset(ds, v).Available)
	require.NoError(t, err)
	v.Nav = tr.To

	country := RunDataset(ds, v)
	assert.Equal(t, aggregate.DepthCity, country.Depth)
	require.Len(t, country.Groups, 1)
	assert.Equal(t, "A", country.Groups[0].Group.Key.City)
	assert.Equal(t, aggregate.Key{Country: "X"}, country.Detail.Key)
	assert.True(t, country.BackEnabled)

	tr, err = navigation.SelectCity(v.Nav, "A", country.Available)
	require.NoError(t, err)
	v.Nav = tr.To

	city := RunDataset(ds, v)
	g := city.Groups[0].Group
	assert.Equal(t, 2, g.N)
	assert.Equal(t, 200.0, g.MeanPrice)
	assert.Equal(t, 20.0, g.MeanPricePerArea)

	require.Len(t, city.Detail.Top, 2)
	assert.Equal(t, 1, city.Detail.Top[0].Record.ID, "cheaper per m² scores higher")
	assert.Equal(t, 2, city.Detail.Top[1].Record.ID)
	assert.Greater(t, city.Detail.Top[0].Score, city.Detail.Top[1].Score)
}

func TestRun_Focus(t *testing.T) {
	v := DefaultView()
	v.Focus = aggregate.Key{Country: "Y", City: "B"}
	m := Run(scenario().Records, v)
	assert.Equal(t, v.Focus, m.Detail.Key)
	assert.Len(t, m.Detail.Top, 1)
}

func TestApply_FilterChangeResetsNavigation(t *testing.T) {
	prev := DefaultView()
	prev.Nav = navigation.City("X", "A")
	prev.Focus = aggregate.Key{Country: "X", City: "A"}

	same := prev
	same.Weights = aggregate.Weights{Neighbourhood: 1}
	assert.Equal(t, prev.Nav, Apply(prev, same).Nav)

	changed := prev
	changed.Filter = filter.FilterSet{PriceMax: 250}
	next := Apply(prev, changed)
	assert.Equal(t, navigation.World(), next.Nav)
	assert.Equal(t, aggregate.Key{}, next.Focus)
	assert.Equal(t, 250.0, next.Filter.PriceMax)
}

func TestEngine_DropsStaleResults(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var got []RenderModel

	e := NewEngine(scenario(), func(m RenderModel) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	}, nil)
	e.compute = func(v ViewState) RenderModel {
		if v.TopN == 1 {
			<-release
		}
		return Run(e.ds.Records, v)
	}

	slow := DefaultView()
	slow.TopN = 1
	fast := DefaultView()
	fast.TopN = 2

	first := e.Submit(slow)
	second := e.Submit(fast)
	require.Greater(t, second, first)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, testTimeout, testTick)

	close(release)
	e.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1, "older result must be discarded")
	assert.Equal(t, second, got[0].Seq)
	assert.Equal(t, 2, got[0].View.TopN)
	assert.Equal(t, second, e.Latest())
}

func TestEngine_Memo(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	var delivered []uint64

	e := NewEngine(scenario(), func(m RenderModel) {
		mu.Lock()
		delivered = append(delivered, m.Seq)
		mu.Unlock()
	}, nil)
	e.compute = func(v ViewState) RenderModel {
		mu.Lock()
		calls++
		mu.Unlock()
		return Run(e.ds.Records, v)
	}

	v := DefaultView()
	e.Submit(v)
	e.Wait()
	e.Submit(v)
	e.Wait()

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, e.Cached())
	assert.Equal(t, []uint64{1, 2}, delivered)
}

func TestEngine_MemoBounded(t *testing.T) {
	e := NewEngine(scenario(), nil, nil)

	// Focus and TopN vary within one scope; the memo stays capped.
	for i := 0; i < 3*maxCachedModels; i++ {
		v := DefaultView()
		v.TopN = i
		v.Focus = aggregate.Key{Country: "X", City: "A"}
		if i%2 == 0 {
			v.Focus = aggregate.Key{Country: "Y", City: "B"}
		}
		e.Submit(v)
		e.Wait()
	}
	assert.Equal(t, maxCachedModels, e.Cached())

	// A new filter starts a new scope and drops the old models.
	v := DefaultView()
	v.Filter = filter.FilterSet{PriceMax: 250}
	e.Submit(v)
	e.Wait()
	assert.Equal(t, 1, e.Cached())
}

func TestFingerprint_EscapesNames(t *testing.T) {
	a := DefaultView()
	a.Nav = navigation.City("A, B", "C")
	b := DefaultView()
	b.Nav = navigation.City("A", "B, C")
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	a = DefaultView()
	a.Focus = aggregate.Key{Country: "X/Y", City: "Z"}
	b = DefaultView()
	b.Focus = aggregate.Key{Country: "X", City: "Y/Z"}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
