package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/born-ml/layerkit/internal/backend/cpu"
	"github.com/born-ml/layerkit/internal/features"
	"github.com/born-ml/layerkit/internal/model"
	"github.com/born-ml/layerkit/internal/nn"
	"github.com/born-ml/layerkit/internal/optim"
	"github.com/born-ml/layerkit/internal/tensor"
)

// Word-shape classes the toy tagger learns.
const (
	classCapitalised = iota
	classNumber
	classOther
	numClasses
)

var sampleText = []string{
	"Alice paid 42 dollars to Bob",
	"the 3 cats met Carol in Paris",
	"Bob owes 7 more after 12 days",
	"Dave and Erin sold 150 apples",
	"it rained for 2 hours in London",
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	file := fs.String("file", "", "Text file with one sentence per line (default: built-in sample)")
	optName := fs.String("opt", "adam", "Optimizer: sgd or adam")
	lr := fs.Float64("lr", 0.01, "Learning rate")
	momentum := fs.Float64("momentum", 0.9, "SGD momentum")
	steps := fs.Int("steps", 50, "Training steps")
	width := fs.Int("width", 32, "Token vector width")
	depth := fs.Int("depth", 2, "Convolution depth")
	batchRows := fs.Int("batch-rows", model.DefaultBatchRows, "Rows per output-layer batch")
	scorer := fs.Bool("scorer", false, "Also train a window slot scorer on the frozen encoder")
	seed := fs.Int64("seed", 0, "Initialisation seed")
	load := fs.String("load", "", "Load tagger parameters from this file before training")
	save := fs.String("save", "", "Save tagger parameters to this file after training")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return fmt.Errorf("steps must be positive, got %d", *steps)
	}

	texts := sampleText
	if *file != "" {
		var err error
		if texts, err = readLines(*file); err != nil {
			return err
		}
	}
	docs, err := features.TokenizeAll(features.NewWhitespace(), texts)
	if err != nil {
		return err
	}
	truths := make([][]int, len(docs))
	for i, d := range docs {
		truths[i] = shapeClasses(d)
	}

	cfg, err := model.ConfigFromEnv(model.DefaultTok2VecConfig())
	if err != nil {
		return err
	}
	cfg.Width, cfg.Depth = *width, *depth

	e := cpu.NewWithSeed(*seed)
	enc, err := model.Tok2Vec(e, cfg)
	if err != nil {
		return err
	}
	tagger, err := model.NewTagger(e, enc, numClasses, *batchRows)
	if err != nil {
		return err
	}
	if *load != "" {
		if err := loadTagger(tagger, *load); err != nil {
			return err
		}
		fmt.Printf("Loaded parameters from %s\n", *load)
	}
	opt, err := newOptimizer(*optName, float32(*lr), float32(*momentum))
	if err != nil {
		return err
	}

	fmt.Printf("Training tagger on %d sentences (%s, lr=%.4f, %d steps)\n", len(docs), *optName, *lr, *steps)
	for step := 1; step <= *steps; step++ {
		loss, err := tagger.Update(docs, truths, opt)
		if err != nil {
			return err
		}
		if step == 1 || step%10 == 0 || step == *steps {
			fmt.Printf("  step %3d  loss=%.4f\n", step, loss)
		}
	}

	pred, err := tagger.Predict(docs)
	if err != nil {
		return err
	}
	fmt.Printf("Tagger accuracy: %.2f%%  (%d parameters)\n", accuracy(pred, truths)*100, enc.NumParams()+nn.CountParams(tagger.Output()))

	if *save != "" {
		if err := saveTagger(tagger, *save); err != nil {
			return err
		}
		fmt.Printf("Saved parameters to %s\n", *save)
	}

	if *scorer {
		return trainScorer(e, enc, docs, truths, opt, *steps)
	}
	return nil
}

// trainScorer fits a SlotScorer that classifies each token from a window of
// three encoder vectors. The encoder is frozen; only the scorer learns.
func trainScorer(e *cpu.CPUBackend, enc *model.Encoder, docs []*features.Doc, truths [][]int, opt optim.Optimizer, steps int) error {
	const nF = 3
	vecs, _, err := enc.Forward(docs, false)
	if err != nil {
		return err
	}
	tokens, lengths, err := tensor.Flatten(e, vecs, 0)
	if err != nil {
		return err
	}
	ids, err := model.WindowIndex(lengths, nF)
	if err != nil {
		return err
	}
	var flat []int
	for _, t := range truths {
		flat = append(flat, t...)
	}

	s := model.NewSlotScorer(e, numClasses, enc.Width(), enc.Width(), nF, 2)
	fmt.Printf("Training slot scorer on %d states\n", ids.Rows())
	var probs *tensor.Array
	for step := 1; step <= steps; step++ {
		pre, err := s.Begin(tokens)
		if err != nil {
			return err
		}
		p, bp, err := pre.Score(ids, true)
		if err != nil {
			return err
		}
		probs = p
		d, loss, err := nn.CategoricalCrossEntropy(e, p, flat)
		if err != nil {
			return err
		}
		if _, err := bp.Backward(d, opt); err != nil {
			return err
		}
		if step == 1 || step%10 == 0 || step == steps {
			fmt.Printf("  step %3d  loss=%.4f\n", step, loss)
		}
	}
	fmt.Printf("Scorer accuracy: %.2f%%\n", nn.Accuracy(probs, flat)*100)
	return nil
}

func newOptimizer(name string, lr, momentum float32) (optim.Optimizer, error) {
	switch name {
	case "sgd":
		return optim.NewSGD(optim.SGDConfig{LR: lr, Momentum: momentum}), nil
	case "adam":
		return optim.NewAdam(optim.AdamConfig{LR: lr}), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
}

func shapeClasses(doc *features.Doc) []int {
	out := make([]int, doc.Len())
	for i, tok := range doc.Tokens {
		switch shape := features.Shape(tok.Text); {
		case strings.HasPrefix(shape, "X"):
			out[i] = classCapitalised
		case strings.HasPrefix(shape, "d"):
			out[i] = classNumber
		default:
			out[i] = classOther
		}
	}
	return out
}

func accuracy(pred, truths [][]int) float64 {
	correct, total := 0, 0
	for i := range pred {
		for j := range pred[i] {
			total++
			if pred[i][j] == truths[i][j] {
				correct++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

func saveTagger(t *model.Tagger, path string) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is a user-supplied output file
	if err != nil {
		return err
	}
	if err := t.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func loadTagger(t *model.Tagger, path string) error {
	f, err := os.Open(path) //nolint:gosec // G304: path is a user-supplied model file
	if err != nil {
		return err
	}
	defer f.Close()
	return t.Load(bufio.NewReader(f))
}
