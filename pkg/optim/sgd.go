package optim

import "gonum.org/v1/gonum/floats"

// SGD is stochastic gradient descent with optional L2 weight decay.
type SGD struct {
	LearningRate float64
	WeightDecay  float64
}

// SGDOption configures an SGD optimizer.
type SGDOption func(*SGD)

// WithWeightDecay adds lambda*w to every gradient.
func WithWeightDecay(lambda float64) SGDOption { return func(o *SGD) { o.WeightDecay = lambda } }

func NewSGD(lr float64, opts ...SGDOption) *SGD {
	o := &SGD{LearningRate: lr}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Step updates weights in place.
func (o *SGD) Step(weights, grads []float64) {
	if o.WeightDecay != 0 {
		floats.Scale(1-o.LearningRate*o.WeightDecay, weights)
	}
	floats.AddScaled(weights, -o.LearningRate, grads)
}
