package data

// Sample is a single encoded data point.
type Sample struct {
	X []float64
	Y float64
}

// Batch is a collection of encoded data points.
type Batch struct {
	X [][]float64
	Y []float64
}

// Samples zips encoded rows and labels into a closed channel of samples.
func Samples(X [][]float64, y []float64) <-chan Sample {
	out := make(chan Sample, len(X))
	for i := range X {
		out <- Sample{X: X[i], Y: y[i]}
	}
	close(out)
	return out
}

// Batcher reads from a Sample channel and emits mini-batches of batchSize.
// The final batch may be smaller. Close the returned done channel to stop early.
func Batcher(in <-chan Sample, batchSize int, out chan<- Batch) (done chan struct{}) {
	done = make(chan struct{})
	if batchSize < 1 {
		batchSize = 1
	}

	go func() {
		defer close(out)

		var X [][]float64
		var Y []float64
		for {
			select {
			case <-done:
				return
			case s, ok := <-in:
				if !ok {
					if len(Y) > 0 {
						select {
						case out <- Batch{X: X, Y: Y}:
						case <-done:
						}
					}
					return
				}
				X = append(X, s.X)
				Y = append(Y, s.Y)
				if len(Y) == batchSize {
					select {
					case out <- Batch{X: X, Y: Y}:
					case <-done:
						return
					}
					X = nil
					Y = nil
				}
			}
		}
	}()

	return done
}
