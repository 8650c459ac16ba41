package tetris

import "math"

// Source は [0, 1) の一様乱数を供給します。*rand.Rand はこれを満たします。
type Source interface {
	Float64() float64
}

// Randomizer はカタログのインデックスを選び、次に来るピースの固定長の先読みキューを保持します。
type Randomizer struct {
	catalogSize int
	queue       []int
	src         Source
	legacySkew  bool
}

// RandomizerOption は Randomizer を設定します。
type RandomizerOption func(*Randomizer)

// WithLegacySkew は floor(r * size) の代わりに floor(r * (size - 0.5)) でピースを選びます。
// カタログの最後のピースは他の約半分の頻度になります。この分布で記録したゲームの再現に使います。
func WithLegacySkew() RandomizerOption {
	return func(r *Randomizer) {
		r.legacySkew = true
	}
}

// NewRandomizer はキューに lookahead 個のエントリを積んだ状態の Randomizer を返します。
func NewRandomizer(catalogSize, lookahead int, src Source, opts ...RandomizerOption) *Randomizer {
	r := &Randomizer{
		catalogSize: catalogSize,
		src:         src,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.queue = make([]int, lookahead)
	for i := range r.queue {
		r.queue[i] = r.Next()
	}
	return r
}

// Next はキューに触れずに新しいカタログのインデックスを1つ引きます。
func (r *Randomizer) Next() int {
	span := float64(r.catalogSize)
	if r.legacySkew {
		span -= 0.5
	}
	idx := int(math.Floor(r.src.Float64() * span))
	if idx >= r.catalogSize {
		idx = r.catalogSize - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// Pop はキューの先頭を取り出し、新しく1つ引いて末尾に追加します。キューの長さは変わりません。
func (r *Randomizer) Pop() int {
	if len(r.queue) == 0 {
		return r.Next()
	}
	front := r.queue[0]
	copy(r.queue, r.queue[1:])
	r.queue[len(r.queue)-1] = r.Next()
	return front
}

// Upcoming はキューのコピーを先頭から順に返します。
func (r *Randomizer) Upcoming() []int {
	return append([]int(nil), r.queue...)
}

// RotationCount は出現するピースを時計回りに何回回転させるかを [0, 4) の一様分布で引きます。
// ピースの選択とは独立です。
func (r *Randomizer) RotationCount() int {
	n := int(r.src.Float64() * 4)
	if n > 3 {
		n = 3
	}
	return n
}
