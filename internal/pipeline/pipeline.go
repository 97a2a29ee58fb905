/**
 * Reconstruction Pipeline - Orchestrator
 *
 * Runs the full screenshot-to-transcript flow: per-image OCR and
 * classification under bounded parallelism, partner-name resolution,
 * cross-image assembly, and optional generative refinement with a
 * heuristic fallback.
 */

package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/chatlens/transcript-worker/internal/errors"
	"github.com/chatlens/transcript-worker/internal/logging"
	"github.com/chatlens/transcript-worker/internal/ocr"
)

// Reconstructor wires the pipeline stages together.
type Reconstructor struct {
	engine     ocr.Engine
	refiner    Refiner
	filter     *NoiseFilter
	title      *TitleExtractor
	classifier *SpeakerClassifier
	merger     *Merger
	assembler  *Assembler
	th         Thresholds
	parallel   int
	logger     *logging.Logger
}

// Option mutates a Reconstructor during construction.
type Option func(*Reconstructor)

// WithRefiner installs the generative refinement collaborator.
func WithRefiner(r Refiner) Option {
	return func(rc *Reconstructor) { rc.refiner = r }
}

// WithParallelism bounds the number of images processed concurrently.
func WithParallelism(n int) Option {
	return func(rc *Reconstructor) {
		if n > 0 {
			rc.parallel = n
		}
	}
}

// WithNoiseFilter replaces the default filter, e.g. one extended with an
// operator pattern file.
func WithNoiseFilter(f *NoiseFilter) Option {
	return func(rc *Reconstructor) {
		rc.filter = f
		rc.title = NewTitleExtractor(f, rc.th)
	}
}

func NewReconstructor(engine ocr.Engine, th Thresholds, logger *logging.Logger, opts ...Option) *Reconstructor {
	r := &Reconstructor{
		engine:     engine,
		th:         th,
		parallel:   4,
		logger:     logger,
		classifier: NewSpeakerClassifier(th),
		merger:     NewMerger(th),
		assembler:  NewAssembler(),
	}
	r.filter = NewNoiseFilter(th)
	r.title = NewTitleExtractor(r.filter, th)
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconstruct runs the pipeline over the images in input order and returns
// the assembled conversation. Individual bad images are skipped with a log
// line; only when every image fails does the call return an error. Images
// that decode fine but contain no recognizable text yield an empty
// conversation, which callers treat as "no content recognized".
func (r *Reconstructor) Reconstruct(ctx context.Context, images [][]byte, useRefinement bool) (*Conversation, error) {
	if len(images) == 0 {
		return &Conversation{}, nil
	}

	results := make([]*ImageOCRResult, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i := range images {
		g.Go(func() error {
			res, err := r.processImage(gctx, images[i], i)
			if err != nil {
				r.logger.Error("image processing failed", "image_index", i, "error", err.Error())
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	usable := make([]ImageOCRResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			usable = append(usable, *res)
		}
	}
	if len(usable) == 0 {
		return nil, errors.NewNoUsableImagesError(len(images))
	}

	// First non-empty title-band name wins, in input order.
	partnerName := ""
	for _, res := range usable {
		if res.TitleName != "" {
			partnerName = res.TitleName
			break
		}
	}

	if useRefinement && r.refiner != nil {
		if conv, ok := r.refine(ctx, usable, partnerName); ok {
			conv.ImageCount = len(images)
			return conv, nil
		}
	}

	msgs := r.assembler.Flatten(usable)
	return &Conversation{
		Transcript:  r.assembler.Format(msgs, partnerName),
		PartnerName: partnerName,
		Messages:    msgs,
		ImageCount:  len(images),
	}, nil
}

// refine hands the tagged dump to the collaborator. Any failure falls back
// to the heuristic transcript; refinement is best effort.
func (r *Reconstructor) refine(ctx context.Context, results []ImageOCRResult, detectedName string) (*Conversation, bool) {
	dump := r.assembler.TaggedDump(results, detectedName)
	transcript, name, err := r.refiner.Refine(ctx, dump, detectedName)
	if err != nil {
		r.logger.Warn("refinement failed, using heuristic transcript", "error", err.Error())
		return nil, false
	}
	if transcript == "" {
		r.logger.Warn("refinement returned empty transcript, using heuristic output")
		return nil, false
	}
	if name == "" {
		name = detectedName
	}
	return &Conversation{
		Transcript:  transcript,
		PartnerName: name,
		Refined:     true,
	}, true
}

// processImage runs decode, OCR, and classification for one input image.
func (r *Reconstructor) processImage(ctx context.Context, raw []byte, index int) (*ImageOCRResult, error) {
	norm, err := DecodeAndNormalize(raw, r.th.MaxImageSide, index)
	if err != nil {
		return nil, err
	}

	boxes, err := r.engine.Detect(ctx, norm.Img)
	if err != nil {
		return nil, errors.NewOCRFailedError(index, r.engine.Name(), err)
	}
	boxes = norm.MapBoxesToOriginal(boxes)

	res := &ImageOCRResult{Index: index, RawTexts: make([]string, 0, len(boxes))}
	for _, b := range boxes {
		res.RawTexts = append(res.RawTexts, b.Text)
	}

	imgW := float64(norm.OrigWidth)
	imgH := float64(norm.OrigHeight)

	name, titleIdx := r.title.Extract(boxes, imgW, imgH)
	res.TitleName = name
	if titleIdx >= 0 {
		// The title box is chrome from the dialogue's point of view.
		boxes = append(boxes[:titleIdx], boxes[titleIdx+1:]...)
	}

	boxes = r.filter.Filter(boxes, imgW, imgH)

	var msgs []ChatMessage
	for _, b := range boxes {
		speaker, ok := r.classifier.Classify(b, norm)
		if !ok {
			continue
		}
		msgs = append(msgs, ChatMessage{
			Speaker:     speaker,
			Text:        b.Text,
			ImageIndex:  index,
			VerticalKey: b.Quad.Center().Y,
		})
	}
	res.Messages = r.merger.Merge(msgs)

	r.logger.Info("image processed",
		"image_index", index,
		"boxes", len(res.RawTexts),
		"messages", len(res.Messages),
		"title_name", res.TitleName)
	return res, nil
}
