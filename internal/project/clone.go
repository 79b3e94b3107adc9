package project

import "reflect"

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	out := p
	if p.Timeline.Tracks != nil {
		out.Timeline.Tracks = make([]Track, len(p.Timeline.Tracks))
		for i, tr := range p.Timeline.Tracks {
			out.Timeline.Tracks[i] = tr.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the track.
func (t Track) Clone() Track {
	out := t
	if t.Clips != nil {
		out.Clips = make([]Clip, len(t.Clips))
		for i, c := range t.Clips {
			out.Clips[i] = c.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the clip.
func (c Clip) Clone() Clip {
	out := c
	if c.Transitions != nil {
		out.Transitions = append([]Transition(nil), c.Transitions...)
	}
	if c.Filters != nil {
		out.Filters = make([]Filter, len(c.Filters))
		for i, f := range c.Filters {
			out.Filters[i] = f
			out.Filters[i].Parameters = cloneParams(f.Parameters)
		}
	}
	return out
}

// Equal reports structural equality of two projects.
func Equal(a, b Project) bool {
	return reflect.DeepEqual(a, b)
}

func cloneParams(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneParams(val)
	case []any:
		cp := make([]any, len(val))
		for i, e := range val {
			cp[i] = cloneValue(e)
		}
		return cp
	default:
		return v
	}
}
