package pipeline

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpst-apps/explainable-ai/pkg/counterfactual"
	"github.com/bpst-apps/explainable-ai/pkg/data"
	"github.com/bpst-apps/explainable-ai/pkg/loader"
	"github.com/bpst-apps/explainable-ai/pkg/model"
	"github.com/bpst-apps/explainable-ai/pkg/schema"
	"github.com/bpst-apps/explainable-ai/pkg/stats"
)

func censusDataset(t *testing.T, n int) (*schema.Schema, *Dataset) {
	t.Helper()
	s := schema.Census()
	ds, err := FromFrame(data.SyntheticCensus(n, 0.02, 11), s)
	require.NoError(t, err)
	return s, ds
}

func forest() *model.RandomForest {
	return model.NewRandomForest(
		model.WithNEstimators(30),
		model.WithForestMaxDepth(10),
		model.WithForestRandomState(5),
	)
}

func TestFromFrame(t *testing.T) {
	s, ds := censusDataset(t, 50)
	assert.Len(t, ds.Rows, 50)
	assert.Len(t, ds.Labels, 50)
	assert.Equal(t, []string{"0", "1"}, ds.Classes)
	assert.Len(t, ds.Rows[0], s.Len())

	bad := &data.Frame{Header: data.CensusHeader, Records: [][]string{
		{"30", "Private", "PhD", "Single", "Sales", "White", "Male", "40", "0"},
	}}
	_, err := FromFrame(bad, s)
	assert.ErrorIs(t, err, schema.ErrInvalidValue)

	_, err = FromFrame(&data.Frame{Header: []string{"age"}}, s)
	assert.Error(t, err)
}

func TestPipelineNotFitted(t *testing.T) {
	p := New(schema.Census(), forest())
	_, err := p.Predict(schema.Row{})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestPipelineForest(t *testing.T) {
	s, ds := censusDataset(t, 1500)
	rnd := rand.New(rand.NewSource(1))
	trainX, testX, trainY, testY, err := loader.TrainTestSplit(ds.Rows, ds.Labels, 0.2, rnd)
	require.NoError(t, err)

	p := New(s, forest(), stats.NewStandardScaler())
	require.NoError(t, p.Fit(trainX, trainY))

	rep, err := p.Evaluate(testX, testY, 1)
	require.NoError(t, err)
	assert.Greater(t, rep.Accuracy, 0.8, rep.String())
	assert.Positive(t, rep.LogLoss)

	pred, err := p.Predict(testX[0])
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, pred.Classes)
	assert.InDelta(t, 1.0, pred.Proba[0]+pred.Proba[1], 1e-9)
}

func TestPipelineLogistic(t *testing.T) {
	s, ds := censusDataset(t, 1000)
	p := New(s, model.NewLogisticRegression(model.WithEpochs(40), model.WithLogisticRandomState(2)), stats.NewStandardScaler())
	require.NoError(t, p.Fit(ds.Rows, ds.Labels))
	rep, err := p.Evaluate(ds.Rows, ds.Labels, 1)
	require.NoError(t, err)
	assert.Greater(t, rep.Accuracy, 0.75, rep.String())
}

func TestCrossValidate(t *testing.T) {
	s, ds := censusDataset(t, 600)
	scores, err := CrossValidate(func() *Pipeline { return New(s, forest()) }, ds.Rows, ds.Labels, 3, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	require.Len(t, scores, 3)
	for _, sc := range scores {
		assert.Greater(t, sc, 0.7)
	}

	_, err = CrossValidate(func() *Pipeline { return New(s, forest()) }, ds.Rows[:2], ds.Labels[:2], 5, rand.New(rand.NewSource(3)))
	assert.Error(t, err)
}

func TestExplainThroughForest(t *testing.T) {
	s, ds := censusDataset(t, 1500)
	p := New(s, forest())
	require.NoError(t, p.Fit(ds.Rows, ds.Labels))

	e, err := counterfactual.NewExplainer(s, p)
	require.NoError(t, err)
	query, err := s.RowFromMap(map[string]any{
		"age": 22, "workclass": "Private", "education": "HS-grad",
		"marital_status": "Single", "occupation": "Blue-Collar", "race": "White",
		"gender": "Male", "hours_per_week": 16,
	})
	require.NoError(t, err)

	params := counterfactual.DefaultParams()
	params.TotalCFs = 5
	params.Seed = 1
	res, err := e.Explain(context.Background(), query, params)
	require.NoError(t, err)
	assert.Equal(t, 0, res.QueryPrediction.Class)
	require.Len(t, res.Counterfactuals, 5)
	for _, cf := range res.Counterfactuals {
		got, err := p.Predict(cf.Row)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Class)
		assert.NotEmpty(t, cf.Changed)
	}
}
