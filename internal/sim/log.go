package sim

import (
	"math"
	"strings"

	"github.com/san-kum/blocksim/internal/signal"
	"gonum.org/v1/gonum/mat"
)

// TimeKey is the log key of the simulation time.
const TimeKey = "time"

// SignalKey builds the log key of an output port.
func SignalKey(blockName, port string) string {
	return blockName + ".outputs." + port
}

// ParseSignalKey splits "<block>.outputs.<port>". Block names may contain
// dots; the last ".outputs." separator wins.
func ParseSignalKey(key string) (blockName, port string, ok bool) {
	const sep = ".outputs."
	i := strings.LastIndex(key, sep)
	if i <= 0 || i+len(sep) >= len(key) {
		return "", "", false
	}
	return key[:i], key[i+len(sep):], true
}

// Log holds the values recorded at every step of a run, one entry per
// step. Unset ports are recorded as nil.
type Log struct {
	keys   []string
	times  []float64
	values map[string][]*mat.Dense
}

func newLog(keys []string) *Log {
	l := &Log{values: make(map[string][]*mat.Dense, len(keys))}
	for _, k := range keys {
		if _, dup := l.values[k]; dup || k == TimeKey {
			continue
		}
		l.keys = append(l.keys, k)
		l.values[k] = nil
	}
	return l
}

func (l *Log) record(t float64, lookup func(key string) *mat.Dense) {
	l.times = append(l.times, t)
	for _, k := range l.keys {
		l.values[k] = append(l.values[k], signal.Clone(lookup(k)))
	}
}

// Keys lists "time" followed by the signal keys in request order.
func (l *Log) Keys() []string {
	out := make([]string, 0, len(l.keys)+1)
	out = append(out, TimeKey)
	return append(out, l.keys...)
}

// SignalKeys lists the signal keys without "time".
func (l *Log) SignalKeys() []string {
	out := make([]string, len(l.keys))
	copy(out, l.keys)
	return out
}

func (l *Log) Len() int { return len(l.times) }

func (l *Log) Times() []float64 {
	out := make([]float64, len(l.times))
	copy(out, l.times)
	return out
}

// Get returns the recorded values of key. Times are returned as 1x1
// matrices.
func (l *Log) Get(key string) ([]*mat.Dense, bool) {
	if key == TimeKey {
		out := make([]*mat.Dense, len(l.times))
		for i, t := range l.times {
			out[i] = signal.Scalar(t)
		}
		return out, true
	}
	v, ok := l.values[key]
	return v, ok
}

// Scalars returns element (0,0) of every recorded value; unset entries are
// NaN.
func (l *Log) Scalars(key string) []float64 {
	return l.Element(key, 0, 0)
}

// Element returns element (i,j) of every recorded value. Entries that are
// unset or too small are NaN.
func (l *Log) Element(key string, i, j int) []float64 {
	if key == TimeKey {
		return l.Times()
	}
	vals := l.values[key]
	out := make([]float64, len(vals))
	for n, v := range vals {
		out[n] = math.NaN()
		if v == nil {
			continue
		}
		if r, c := v.Dims(); i < r && j < c {
			out[n] = v.At(i, j)
		}
	}
	return out
}
