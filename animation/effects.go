package animation

import (
	"math"
	"sync"
	"time"
)

// Default frame timings.
const (
	TypingInterval = 14 * time.Millisecond
	RadarInterval  = 30 * time.Millisecond
	PulseInterval  = 2 * time.Second
	PulseHold      = 200 * time.Millisecond
	BootDelay      = 2500 * time.Millisecond
	RadarStep      = 0.02
)

// Typewriter 逐字显示文本；设置新文本会从头开始
type Typewriter struct {
	mu    sync.Mutex
	runes []rune
	shown int
	gen   uint64
}

// Type 设置新文本并返回本次动画的代号
func (tw *Typewriter) Type(text string) uint64 {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	tw.runes = []rune(text)
	tw.shown = 0
	tw.gen++
	return tw.gen
}

// Step 显示下一个字符，文本已全部显示时返回false
func (tw *Typewriter) Step() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.shown >= len(tw.runes) {
		return false
	}
	tw.shown++
	return tw.shown < len(tw.runes)
}

// Generation 当前动画代号，用于丢弃旧动画的帧
func (tw *Typewriter) Generation() uint64 {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.gen
}

// Text 当前已显示的部分
func (tw *Typewriter) Text() string {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return string(tw.runes[:tw.shown])
}

// Full 完整文本
func (tw *Typewriter) Full() string {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return string(tw.runes)
}

// Done 是否已全部显示
func (tw *Typewriter) Done() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.shown >= len(tw.runes)
}

// Radar 雷达轨道上移动的行星
type Radar struct {
	mu    sync.Mutex
	angle float64
	step  float64
}

// NewRadar 创建雷达，step为每帧前进的弧度
func NewRadar(step float64) *Radar {
	if step == 0 {
		step = RadarStep
	}
	return &Radar{step: step}
}

// Advance 前进一帧并返回新角度，角度保持在[0, 2π)
func (r *Radar) Advance() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.angle = math.Mod(r.angle+r.step, 2*math.Pi)
	return r.angle
}

// Angle 当前角度
func (r *Radar) Angle() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.angle
}

// Position 行星在以(cx, cy)为圆心、radius为半径的轨道上的位置
func (r *Radar) Position(cx, cy, radius float64) (float64, float64) {
	a := r.Angle()
	return cx + math.Cos(a)*radius, cy + math.Sin(a)*radius
}

// Pulse 周期性高亮，每次脉冲后保持hold时长
type Pulse struct {
	mu    sync.Mutex
	last  time.Time
	hold  time.Duration
	beats int64
}

// NewPulse 创建脉冲
func NewPulse(hold time.Duration) *Pulse {
	if hold <= 0 {
		hold = PulseHold
	}
	return &Pulse{hold: hold}
}

// Beat 触发一次脉冲并返回累计次数
func (p *Pulse) Beat(now time.Time) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = now
	p.beats++
	return p.beats
}

// Bright 在now时刻是否处于高亮状态
func (p *Pulse) Bright(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.beats > 0 && now.Sub(p.last) < p.hold
}

// Beats 累计脉冲次数
func (p *Pulse) Beats() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.beats
}
