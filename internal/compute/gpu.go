//go:build gpu

package compute

import (
	_ "embed"
	"image/color"
	"runtime"
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/stipple/internal/codec"
)

//go:embed shaders/common.glsl
var commonGLSL string

//go:embed shaders/acceleration.fs
var accelerationFS string

//go:embed shaders/velocity.fs
var velocityFS string

//go:embed shaders/position.fs
var positionFS string

const fragmentHeader = "#version 330\nin vec2 fragTexCoord;\nin vec4 fragColor;\nout vec4 finalColor;\n"

// Blend state that writes shader output verbatim; encoded alpha is data.
const (
	glZero    = 0
	glOne     = 1
	glFuncAdd = 0x8006
)

func init() {
	// GL contexts are bound to the thread that created them.
	runtime.LockOSThread()
}

type pass struct {
	shader rl.Shader
	locs   map[string]int32
}

func loadPass(src string, uniforms ...string) (*pass, bool) {
	sh := rl.LoadShaderFromMemory("", fragmentHeader+commonGLSL+src)
	if !rl.IsShaderValid(sh) {
		return nil, false
	}
	p := &pass{shader: sh, locs: make(map[string]int32, len(uniforms))}
	for _, name := range uniforms {
		p.locs[name] = rl.GetShaderLocation(sh, name)
	}
	return p, true
}

func (p *pass) float(name string, v float64) {
	rl.SetShaderValue(p.shader, p.locs[name], []float32{float32(v)}, rl.ShaderUniformFloat)
}

func (p *pass) vec2(name string, r Resolution) {
	rl.SetShaderValue(p.shader, p.locs[name], []float32{float32(r[0]), float32(r[1])}, rl.ShaderUniformVec2)
}

func (p *pass) texture(name string, t rl.Texture2D) {
	rl.SetShaderValueTexture(p.shader, p.locs[name], t)
}

// GPUBackend renders each pass as a full-buffer quad into a render texture and
// reads the result back before returning.
type GPUBackend struct {
	available bool
	accel     *pass
	velocity  *pass
	position  *pass
	inputs    map[textureKey]rl.Texture2D
	targets   map[int]rl.RenderTexture2D
}

type textureKey struct {
	size int
	slot int
}

func NewGPUBackend() *GPUBackend {
	g := &GPUBackend{
		inputs:  make(map[textureKey]rl.Texture2D),
		targets: make(map[int]rl.RenderTexture2D),
	}

	rl.SetTraceLogLevel(rl.LogWarning)
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(1, 1, "stipple")
	if !rl.IsWindowReady() {
		return g
	}

	var ok [3]bool
	g.accel, ok[0] = loadPass(accelerationFS, "resolution", "positions", "positionLimit", "field",
		"fieldResolution", "fieldLimit", "numDots", "charge", "softening", "accelLimit")
	g.velocity, ok[1] = loadPass(velocityFS, "resolution", "velocities", "previousAcceleration",
		"acceleration", "numDots", "halfDt", "sustain", "vMax", "accelLimit")
	g.position, ok[2] = loadPass(positionFS, "resolution", "positions", "velocities", "acceleration",
		"numDots", "dt", "dt2", "maxDisplacement", "positionLimit", "vMax", "accelLimit")
	g.available = ok[0] && ok[1] && ok[2]
	return g
}

func (g *GPUBackend) Name() string {
	if g.available {
		return "gpu (raylib)"
	}
	return "gpu (not available)"
}

func (g *GPUBackend) Available() bool { return g.available }

func (g *GPUBackend) Cleanup() {
	for _, p := range []*pass{g.accel, g.velocity, g.position} {
		if p != nil {
			rl.UnloadShader(p.shader)
		}
	}
	for _, t := range g.inputs {
		rl.UnloadTexture(t)
	}
	for _, t := range g.targets {
		rl.UnloadRenderTexture(t)
	}
	g.inputs = map[textureKey]rl.Texture2D{}
	g.targets = map[int]rl.RenderTexture2D{}
	if rl.IsWindowReady() {
		rl.CloseWindow()
	}
	g.available = false
}

func pixels(b *codec.Buffer) []color.RGBA {
	return unsafe.Slice((*color.RGBA)(unsafe.Pointer(&b.Pix[0])), len(b.Pix)/4)
}

// upload copies b into the input texture for (size, slot).
func (g *GPUBackend) upload(b *codec.Buffer, slot int) rl.Texture2D {
	key := textureKey{size: b.Size(), slot: slot}
	tex, ok := g.inputs[key]
	if !ok {
		img := rl.GenImageColor(b.Size(), b.Size(), rl.Blank)
		tex = rl.LoadTextureFromImage(img)
		rl.UnloadImage(img)
		rl.SetTextureFilter(tex, rl.FilterPoint)
		g.inputs[key] = tex
	}
	rl.UpdateTexture(tex, pixels(b))
	return tex
}

func (g *GPUBackend) target(size int) rl.RenderTexture2D {
	t, ok := g.targets[size]
	if !ok {
		t = rl.LoadRenderTexture(int32(size), int32(size))
		g.targets[size] = t
	}
	return t
}

// run draws one pass into out and blocks on the readback.
func (g *GPUBackend) run(p *pass, out *codec.Buffer, bind func()) error {
	if !g.available {
		return ErrBackendUnavailable
	}
	size := out.Size()
	t := g.target(size)

	rl.BeginTextureMode(t)
	rl.ClearBackground(rl.Blank)
	rl.SetBlendFactors(glOne, glZero, glFuncAdd)
	rl.BeginBlendMode(rl.BlendCustom)
	rl.BeginShaderMode(p.shader)
	bind()
	rl.DrawRectangle(0, 0, int32(size), int32(size), rl.White)
	rl.EndShaderMode()
	rl.EndBlendMode()
	rl.EndTextureMode()

	img := rl.LoadImageFromTexture(t.Texture)
	defer rl.UnloadImage(img)
	colors := rl.LoadImageColors(img)
	defer rl.UnloadImageColors(colors)

	copy(pixels(out), colors)
	return nil
}

func (g *GPUBackend) Acceleration(u AccelerationUniforms) error {
	if err := u.validate(); err != nil {
		return err
	}
	pos := g.upload(u.Position, 0)
	field := g.upload(u.Field, 1)

	return g.run(g.accel, u.Out, func() {
		p := g.accel
		p.vec2("resolution", u.Resolution)
		p.texture("positions", pos)
		p.float("positionLimit", u.PositionLimit)
		p.texture("field", field)
		p.vec2("fieldResolution", u.FieldResolution)
		p.float("fieldLimit", u.FieldLimit)
		p.float("numDots", float64(u.NumDots))
		p.float("charge", u.Charge)
		p.float("softening", u.Softening)
		p.float("accelLimit", u.AccelLimit)
	})
}

func (g *GPUBackend) Velocity(u VelocityUniforms) error {
	if err := u.validate(); err != nil {
		return err
	}
	vel := g.upload(u.Velocity, 0)
	prev := g.upload(u.PreviousAcceleration, 1)
	next := g.upload(u.Acceleration, 2)

	return g.run(g.velocity, u.Out, func() {
		p := g.velocity
		p.vec2("resolution", u.Resolution)
		p.texture("velocities", vel)
		p.texture("previousAcceleration", prev)
		p.texture("acceleration", next)
		p.float("numDots", float64(u.NumDots))
		p.float("halfDt", u.HalfDt)
		p.float("sustain", u.Sustain)
		p.float("vMax", u.VMax)
		p.float("accelLimit", u.AccelLimit)
	})
}

func (g *GPUBackend) Position(u PositionUniforms) error {
	if err := u.validate(); err != nil {
		return err
	}
	pos := g.upload(u.Position, 0)
	vel := g.upload(u.Velocity, 1)
	acc := g.upload(u.Acceleration, 2)

	return g.run(g.position, u.Out, func() {
		p := g.position
		p.vec2("resolution", u.Resolution)
		p.texture("positions", pos)
		p.texture("velocities", vel)
		p.texture("acceleration", acc)
		p.float("numDots", float64(u.NumDots))
		p.float("dt", u.Dt)
		p.float("dt2", u.Dt2)
		p.float("maxDisplacement", u.MaxDisplacement)
		p.float("positionLimit", u.PositionLimit)
		p.float("vMax", u.VMax)
		p.float("accelLimit", u.AccelLimit)
	})
}
