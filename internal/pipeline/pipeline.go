// Package pipeline wires the collaborators around the fusion core: text
// recognition first, then the vendor vision API and local detectors feeding
// weighted box fusion and the decision policy.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync"

	_ "golang.org/x/image/bmp"

	"github.com/mealscan/mealscan/internal/common"
	"github.com/mealscan/mealscan/internal/detector"
	"github.com/mealscan/mealscan/internal/fusion"
	"github.com/mealscan/mealscan/internal/geometry"
	"github.com/mealscan/mealscan/internal/ktvision"
	"github.com/mealscan/mealscan/internal/ocr"
	"github.com/mealscan/mealscan/internal/preprocess"
)

// CollaboratorUnavailableError marks a collaborator call that failed or
// returned malformed data. The pipeline degrades to the remaining sources.
type CollaboratorUnavailableError struct {
	Name string
	Err  error
}

func (e *CollaboratorUnavailableError) Error() string {
	return fmt.Sprintf("collaborator %s unavailable: %v", e.Name, e.Err)
}

func (e *CollaboratorUnavailableError) Unwrap() error { return e.Err }

// UndecodableImageError marks request bytes that could not be decoded as an
// image. It is the only pipeline failure attributable to the caller.
type UndecodableImageError struct {
	Err error
}

func (e *UndecodableImageError) Error() string {
	return fmt.Sprintf("undecodable image: %v", e.Err)
}

func (e *UndecodableImageError) Unwrap() error { return e.Err }

// Config holds the fusion and policy parameters for the pipeline.
type Config struct {
	BaseOffset int
	Fusion     fusion.Options
	Thresholds fusion.Thresholds
	Preprocess preprocess.Constraints
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		BaseOffset: fusion.DefaultBaseOffset,
		Fusion:     fusion.DefaultOptions(),
		Thresholds: fusion.DefaultThresholds(),
		Preprocess: preprocess.DefaultConstraints(),
	}
}

// Pipeline processes one image end to end. Collaborators are long-lived and
// injected at construction; all per-request state lives inside ProcessImage.
type Pipeline struct {
	cfg    Config
	ocr    ocr.Client
	vendor ktvision.Client
	models []detector.Model
}

// New creates a pipeline. Any collaborator may be nil; missing collaborators
// simply contribute nothing, matching the partial-source degradation rules.
func New(cfg Config, ocrClient ocr.Client, vendorClient ktvision.Client, models []detector.Model) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		ocr:    ocrClient,
		vendor: vendorClient,
		models: models,
	}
}

// Close releases the local detector sessions.
func (p *Pipeline) Close() error {
	var firstErr error
	for _, m := range p.models {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ProcessImage runs the full recognition flow on raw image bytes. A
// well-formed record is always returned for a decodable image; collaborator
// failures only reduce its content.
func (p *Pipeline) ProcessImage(ctx context.Context, data []byte) (fusion.Record, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fusion.Record{}, &UndecodableImageError{Err: err}
	}

	// Recognized text wins outright when usable.
	if p.ocr != nil {
		tm := common.StartTimer("ocr")
		res, ocrErr := p.ocr.Recognize(ctx, data)
		slog.Debug("stage complete", "stage", tm.Name(), "duration", tm.Stop())
		if ocrErr != nil {
			slog.Warn("text recognition failed, falling through to vision",
				"error", &CollaboratorUnavailableError{Name: "ocr", Err: ocrErr})
		} else if res.Usable() {
			decision := fusion.Decide(res.Items, true, nil, nil, nil, p.cfg.Thresholds)
			return fusion.Assemble(decision), nil
		}
	}

	return p.processVision(ctx, data, img), nil
}

// visionInputs holds the per-request collaborator outputs.
type visionInputs struct {
	regions      []ktvision.Region
	vendorWidth  int
	vendorHeight int
	perModel     [][]detector.Object
}

func (p *Pipeline) processVision(ctx context.Context, data []byte, img image.Image) fusion.Record {
	tm := common.StartTimer("vision")
	inputs := p.collectVision(ctx, data, img)
	slog.Debug("stage complete", "stage", tm.Name(), "duration", tm.Stop())

	reg := fusion.NewRegistry(p.cfg.BaseOffset)
	perSource := p.normalizeSources(inputs, img, reg)

	clusters := fusion.Fuse(perSource, p.cfg.Fusion)
	decision := fusion.Decide(nil, false, clusters, toPolicyRegions(inputs.regions), reg, p.cfg.Thresholds)
	return fusion.Assemble(decision)
}

// collectVision invokes the vendor API and the local detectors. The vendor
// call is independent blocking I/O and runs concurrently; detector passes
// run sequentially because their sessions hold exclusive accelerator
// resources. Each failure is contained and logged.
func (p *Pipeline) collectVision(ctx context.Context, data []byte, img image.Image) visionInputs {
	inputs := visionInputs{perModel: make([][]detector.Object, len(p.models))}
	bounds := img.Bounds()
	inputs.vendorWidth = bounds.Dx()
	inputs.vendorHeight = bounds.Dy()

	var wg sync.WaitGroup
	if p.vendor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()

			payload := data
			resized, err := preprocess.ResizeBytes(data, p.cfg.Preprocess)
			if err != nil {
				slog.Warn("vendor preprocessing failed, sending original image", "error", err)
			} else if !bytes.Equal(resized, data) {
				payload = resized
				// Vendor boxes come back in the resized frame.
				if resizedImg, _, decErr := image.Decode(bytes.NewReader(resized)); decErr == nil {
					rb := resizedImg.Bounds()
					inputs.vendorWidth = rb.Dx()
					inputs.vendorHeight = rb.Dy()
				}
			}

			regions, err := p.vendor.Classify(ctx, payload)
			if err != nil {
				slog.Warn("vendor classification failed",
					"error", &CollaboratorUnavailableError{Name: "ktvision", Err: err})
				return
			}
			inputs.regions = regions
		}()
	}

	for i, model := range p.models {
		objects, err := model.Predict(ctx, img)
		if err != nil {
			slog.Warn("local detector failed",
				"model", model.Name(),
				"error", &CollaboratorUnavailableError{Name: model.Name(), Err: err})
			continue
		}
		inputs.perModel[i] = objects
	}
	wg.Wait()

	return inputs
}

// normalizeSources maps every surviving detection into the unit square and
// resolves labels through the request's registry. Detections with invalid
// geometry are dropped individually.
func (p *Pipeline) normalizeSources(inputs visionInputs, img image.Image, reg *fusion.Registry) [][]fusion.NormalizedDetection {
	bounds := img.Bounds()
	var perSource [][]fusion.NormalizedDetection

	for i, objects := range inputs.perModel {
		src := fusion.LocalSource(i)
		dets := make([]fusion.NormalizedDetection, 0, len(objects))
		for _, obj := range objects {
			reg.ResolveClass(obj.ClassID, obj.ClassName)
			nd, err := fusion.Normalize(fusion.Detection{
				Box:     obj.Box,
				Score:   obj.Score,
				Label:   obj.ClassName,
				ClassID: obj.ClassID,
				Source:  src,
			}, bounds.Dx(), bounds.Dy())
			if err != nil {
				slog.Warn("dropping detection with invalid geometry",
					"source", src.String(), "error", err)
				continue
			}
			dets = append(dets, nd)
		}
		perSource = append(perSource, dets)
	}

	var vendorDets []fusion.NormalizedDetection
	for _, region := range inputs.regions {
		if !region.HasBox || region.FoodName == "" {
			continue
		}
		nd, err := fusion.Normalize(fusion.Detection{
			Box:     geometry.NewBox(region.Left, region.Top, region.Right, region.Bottom),
			Score:   region.Confidence,
			Label:   region.FoodName,
			ClassID: reg.ResolveName(region.FoodName),
			Source:  fusion.VendorSource(),
		}, inputs.vendorWidth, inputs.vendorHeight)
		if err != nil {
			slog.Warn("dropping vendor region with invalid geometry",
				"region", region.ID, "error", err)
			continue
		}
		vendorDets = append(vendorDets, nd)
	}
	if len(vendorDets) > 0 {
		perSource = append(perSource, vendorDets)
	}

	return perSource
}

func toPolicyRegions(regions []ktvision.Region) []fusion.VendorRegion {
	out := make([]fusion.VendorRegion, 0, len(regions))
	for _, r := range regions {
		out = append(out, fusion.VendorRegion{
			ID:         r.ID,
			FoodName:   r.FoodName,
			Confidence: r.Confidence,
			Payload:    r.Payload,
		})
	}
	return out
}
