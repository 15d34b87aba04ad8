package camera

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Faultbox/modelview/pkg/math"
)

// Overrides maps normalized product tokens to camera overrides.
type Overrides map[string]Override

// NormalizeToken lowercases name and strips whitespace, underscores and
// hyphens, so "Model 1", "model_1" and "MODEL-1" share the token "model1".
func NormalizeToken(name string) string {
	var sb strings.Builder
	for _, r := range cases.Lower(language.Und).String(name) {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Lookup finds the override whose token occurs in productName. When
// several match, the longest token wins so "model 10" is not taken for
// "model 1".
func (o Overrides) Lookup(productName string) (*Override, string, bool) {
	name := NormalizeToken(productName)
	if name == "" {
		return nil, "", false
	}
	best := ""
	for key := range o {
		if key == "" || !strings.Contains(name, key) {
			continue
		}
		if len(key) > len(best) || len(key) == len(best) && key < best {
			best = key
		}
	}
	if best == "" {
		return nil, "", false
	}
	ov := o[best]
	return &ov, best, true
}

// Merge returns a copy of o with extra layered on top. Keys of extra are
// normalized.
func (o Overrides) Merge(extra map[string]Override) Overrides {
	out := make(Overrides, len(o)+len(extra))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range extra {
		out[NormalizeToken(k)] = v
	}
	return out
}

func f32(v float32) *float32 { return &v }

func v3(x, y, z float32) *math.Vec3 { return &math.Vec3{X: x, Y: y, Z: z} }

// BuiltinOverrides is the catalog's per-product framing.
func BuiltinOverrides() Overrides {
	entry := func(cam *math.Vec3, scale, minDist, maxDist float32) Override {
		return Override{CameraPosition: cam, Scale: f32(scale), MinDistance: f32(minDist), MaxDistance: f32(maxDist)}
	}
	return Overrides{
		"model1":  entry(v3(0, 0, 2.5), 1.2, 1.5, 5),
		"model2":  entry(v3(0, 0, 2.8), 1.3, 1.8, 6),
		"model3":  entry(v3(0, 0.2, 3), 1.1, 2, 6),
		"model4":  entry(v3(0, 0.2, 3), 1.1, 2, 6),
		"model5":  entry(v3(0, 0, 2.5), 1.4, 1.5, 5),
		"model6":  entry(v3(0, 0, 2.8), 1.3, 1.8, 6),
		"model7":  entry(v3(0, 0, 4), 2.5, 2, 8),
		"model8":  entry(v3(0, 0, 2.2), 1.0, 1.2, 4),
		"model9":  entry(v3(0, 0, 2.2), 1.0, 1.2, 4),
		"model10": entry(v3(0, 0, 2.2), 1.0, 1.2, 4),
	}
}
