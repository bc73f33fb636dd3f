// Package gpu mirrors a glyph atlas into a HAL texture. It owns the
// texture, its view, a sampler, and the bind group layout a text
// pipeline attaches the atlas with, and applies the incremental upload
// spans the atlas reports each frame.
package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/textware/atlas"
)

// Errors returned by AtlasBinding.
var (
	ErrNilDevice = errors.New("gpu: device is nil")
	ErrNilQueue  = errors.New("gpu: queue is nil")
	ErrDestroyed = errors.New("gpu: binding destroyed")
)

// TextureWriter uploads pixel data into texture regions. hal.Queue
// satisfies it; tests substitute a recorder.
type TextureWriter interface {
	WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D)
}

// AtlasBinding owns the GPU-side copy of a glyph atlas. The texture is
// created lazily on the first Sync and recreated whenever the atlas
// grows; the sampler and bind group layout are created once and remain
// valid across recreation.
//
// Bind group layout:
//
//	Binding 0: coverage atlas texture (texture_2d<f32>, fragment)
//	Binding 1: sampler (fragment)
//
// Bind groups reference the texture view, so hosts must rebuild their
// bind group whenever Sync reports recreation.
type AtlasBinding struct {
	device hal.Device
	queue  TextureWriter

	texture hal.Texture
	view    hal.TextureView
	sampler hal.Sampler
	layout  hal.BindGroupLayout

	width     int
	height    int
	destroyed bool
}

// NewAtlasBinding creates the binding and its size-independent
// resources (sampler, bind group layout). No texture exists until the
// first Sync.
func NewAtlasBinding(device hal.Device, queue TextureWriter) (*AtlasBinding, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if queue == nil {
		return nil, ErrNilQueue
	}

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "glyph_atlas_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return nil, fmt.Errorf("create atlas sampler: %w", err)
	}

	layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "glyph_atlas_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		device.DestroySampler(sampler)
		return nil, fmt.Errorf("create atlas bind group layout: %w", err)
	}

	return &AtlasBinding{
		device:  device,
		queue:   queue,
		sampler: sampler,
		layout:  layout,
	}, nil
}

// Sync brings the GPU texture up to date with the atlas staging buffer.
// On the first call, or after the atlas has grown, the texture and view
// are recreated and the whole staging buffer is uploaded; otherwise only
// the given spans are written. It returns true when the texture was
// recreated, signalling that bind groups referencing View must be
// rebuilt.
func (b *AtlasBinding) Sync(a *atlas.Atlas, spans []atlas.UploadSpan) (bool, error) {
	if b.destroyed {
		return false, ErrDestroyed
	}

	desc := a.TextureDesc()
	if b.texture == nil || desc.Width != b.width || desc.Height != b.height {
		if err := b.recreate(desc); err != nil {
			return false, err
		}
		b.uploadFull(a.Pixels(), desc)
		return true, nil
	}

	pixels := a.Pixels()
	for _, s := range spans {
		b.uploadSpan(pixels, s, desc.Width)
	}
	return false, nil
}

// recreate replaces the texture and view for the new atlas dimensions.
func (b *AtlasBinding) recreate(desc atlas.TextureDesc) error {
	label := desc.Label
	if label == "" {
		label = "glyph_atlas"
	}

	w := uint32(desc.Width)  //nolint:gosec // atlas width is bounded
	h := uint32(desc.Height) //nolint:gosec // atlas height is bounded by MaxHeight
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatR8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create atlas texture: %w", err)
	}

	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatR8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return fmt.Errorf("create atlas texture view: %w", err)
	}

	if b.view != nil {
		b.device.DestroyTextureView(b.view)
	}
	if b.texture != nil {
		b.device.DestroyTexture(b.texture)
	}
	b.texture = tex
	b.view = view
	b.width = desc.Width
	b.height = desc.Height
	return nil
}

// uploadFull writes the entire staging buffer.
func (b *AtlasBinding) uploadFull(pixels []byte, desc atlas.TextureDesc) {
	w := uint32(desc.Width)  //nolint:gosec // atlas width is bounded
	h := uint32(desc.Height) //nolint:gosec // atlas height is bounded by MaxHeight
	b.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture: b.texture,
			Aspect:  gputypes.TextureAspectAll,
		},
		pixels,
		&hal.ImageDataLayout{
			BytesPerRow:  w,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
}

// uploadSpan writes one coalesced dirty region. The span rows are
// atlasWidth apart in the staging buffer, which WriteTexture expresses
// as BytesPerRow.
func (b *AtlasBinding) uploadSpan(pixels []byte, s atlas.UploadSpan, atlasWidth int) {
	r := s.Rect
	x, y := uint32(r.X), uint32(r.Y)          //nolint:gosec // span bounds are validated by the atlas
	w, h := uint32(r.Width), uint32(r.Height) //nolint:gosec // span bounds are validated by the atlas
	stride := uint32(atlasWidth)              //nolint:gosec // atlas width is bounded
	b.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture: b.texture,
			Origin:  hal.Origin3D{X: x, Y: y},
			Aspect:  gputypes.TextureAspectAll,
		},
		pixels[s.Offset:s.Offset+s.Length],
		&hal.ImageDataLayout{
			BytesPerRow:  stride,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
}

// Texture returns the current atlas texture, or nil before the first Sync.
func (b *AtlasBinding) Texture() hal.Texture { return b.texture }

// View returns the current texture view, or nil before the first Sync.
// The view is replaced when Sync recreates the texture.
func (b *AtlasBinding) View() hal.TextureView { return b.view }

// Sampler returns the shared clamp-to-edge linear sampler.
func (b *AtlasBinding) Sampler() hal.Sampler { return b.sampler }

// BindGroupLayout returns the layout for binding 0 (texture) and
// binding 1 (sampler). It survives texture recreation.
func (b *AtlasBinding) BindGroupLayout() hal.BindGroupLayout { return b.layout }

// Width returns the width of the GPU texture, 0 before the first Sync.
func (b *AtlasBinding) Width() int { return b.width }

// Height returns the height of the GPU texture, 0 before the first Sync.
func (b *AtlasBinding) Height() int { return b.height }

// Destroy releases all HAL resources. The binding is unusable afterwards.
func (b *AtlasBinding) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true

	if b.view != nil {
		b.device.DestroyTextureView(b.view)
		b.view = nil
	}
	if b.texture != nil {
		b.device.DestroyTexture(b.texture)
		b.texture = nil
	}
	if b.sampler != nil {
		b.device.DestroySampler(b.sampler)
		b.sampler = nil
	}
	if b.layout != nil {
		b.device.DestroyBindGroupLayout(b.layout)
		b.layout = nil
	}
}
