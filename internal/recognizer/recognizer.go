// Package recognizer matches face templates against a set of known faces
// using normalized cross-correlation, with an HNSW index for candidate
// search.
package recognizer

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// datasetExtensions are the reference photo formats the loader accepts.
var datasetExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// Match is a recognition verdict: the best-matching known name and its raw
// correlation score. Below the threshold the name is UnknownPerson but the
// score is still the best one found.
type Match struct {
	Name  string
	Score float64
}

// Recognizer identifies faces by template matching over indexed known faces.
// Recognize is safe for concurrent use; reloads swap the index atomically.
type Recognizer struct {
	index      *Index
	detector   vision.Detector
	threshold  float64
	candidates int
}

// New creates a Recognizer with an empty index. The detector locates faces
// in reference photos during dataset loads; with a nil detector every
// reference photo is treated as a pre-cropped face.
func New(detector vision.Detector, threshold float64, candidates int) *Recognizer {
	if threshold <= 0 {
		threshold = constants.DefaultRecognitionThreshold
	}
	if candidates <= 0 {
		candidates = constants.DefaultSearchCandidates
	}
	return &Recognizer{
		index:      NewIndex(),
		detector:   detector,
		threshold:  threshold,
		candidates: candidates,
	}
}

// Recognize matches a face template against the known faces. The nearest
// index candidates are rescored with the exact correlation and the best one
// wins; below the threshold the verdict is UnknownPerson with the raw score.
func (r *Recognizer) Recognize(template []float32) Match {
	best := Match{Name: constants.UnknownPerson}

	for _, c := range r.index.Search(template, r.candidates) {
		if score := database.CosineSimilarity(template, c.Template); score > best.Score {
			best = Match{Name: c.Name, Score: score}
		}
	}

	if best.Score < r.threshold {
		best.Name = constants.UnknownPerson
	}
	return best
}

// Threshold returns the minimum correlation score for a positive match.
func (r *Recognizer) Threshold() float64 { return r.threshold }

// KnownFaces returns the number of indexed face samples.
func (r *Recognizer) KnownFaces() int { return r.index.Count() }

// People returns the number of distinct people in the index.
func (r *Recognizer) People() int { return r.index.People() }

// Loaded reports whether any known faces are available.
func (r *Recognizer) Loaded() bool { return !r.index.IsEmpty() }

// SaveIndex persists the candidate index to path.
func (r *Recognizer) SaveIndex(path string) error { return r.index.Save(path) }

// LoadIndex restores a persisted candidate index. Missing files leave the
// index empty.
func (r *Recognizer) LoadIndex(path string) error { return r.index.Load(path) }

// LoadResult describes one index rebuild.
type LoadResult struct {
	FacesLoaded  int
	UniquePeople int
	Source       string // "database" or "dataset"
}

// Reload rebuilds the index, preferring stored faces over the dataset
// directory: when the store has faces their saved templates are indexed
// directly, otherwise the directory is scanned and new faces are persisted
// through the store.
func (r *Recognizer) Reload(ctx context.Context, dir string, store database.FaceWriter) (*LoadResult, error) {
	if store != nil {
		faces, err := store.ListFaces(ctx)
		if err != nil {
			return nil, fmt.Errorf("list stored faces: %w", err)
		}
		if len(faces) > 0 {
			entries := make([]Entry, 0, len(faces))
			for _, f := range faces {
				entries = append(entries, Entry{Name: f.PersonName, Template: f.Template})
			}
			r.index.Build(entries)
			return &LoadResult{
				FacesLoaded:  r.index.Count(),
				UniquePeople: r.index.People(),
				Source:       "database",
			}, nil
		}
	}
	return r.LoadDataset(ctx, dir, store, nil)
}

// LoadDataset scans a directory of reference photos named
// <person>_<n>.<ext>, indexes the face found in each and persists new faces
// through the store when one is available. Files without a detectable face
// are skipped. The optional progress callback receives (done, total).
func (r *Recognizer) LoadDataset(
	ctx context.Context, dir string, store database.FaceWriter, progress func(done, total int),
) (*LoadResult, error) {
	files, err := datasetFiles(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(files))
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, imageData, err := r.loadReferencePhoto(path)
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", filepath.Base(path), err)
			continue
		}

		if store != nil {
			face := &database.StoredFace{
				PersonName: entry.Name,
				ImageData:  imageData,
				Template:   entry.Template,
				Metadata: map[string]any{
					"source_file": path,
					"loaded_at":   time.Now().Format(time.RFC3339),
				},
			}
			if _, err := store.SaveFace(ctx, face); err != nil {
				return nil, fmt.Errorf("store face %s: %w", entry.Name, err)
			}
		}

		entries = append(entries, entry)
		if progress != nil {
			progress(i+1, len(files))
		}
	}

	r.index.Build(entries)
	return &LoadResult{
		FacesLoaded:  r.index.Count(),
		UniquePeople: r.index.People(),
		Source:       "dataset",
	}, nil
}

// loadReferencePhoto reads one dataset file and extracts its face template.
func (r *Recognizer) loadReferencePhoto(path string) (Entry, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("read photo: %w", err)
	}

	img, err := vision.DecodeImage(data)
	if err != nil {
		return Entry{}, nil, err
	}

	region := img.Bounds()
	if r.detector != nil {
		box, ok := largestFace(r.detector.Detect(img))
		if !ok {
			return Entry{}, nil, fmt.Errorf("no face found")
		}
		region = box
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Entry{
		Name:     DisplayName(stem),
		Template: vision.TemplateFromRegion(img, region),
	}, data, nil
}

// largestFace picks the biggest detection box, the most likely subject of a
// reference photo.
func largestFace(dets []vision.Detection) (image.Rectangle, bool) {
	var best image.Rectangle
	found := false
	for _, d := range dets {
		if !found || area(d.Box) > area(best) {
			best = d.Box
			found = true
		}
	}
	return best, found
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

// datasetFiles lists supported image files in dir, sorted by name.
func datasetFiles(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dataset directory: %w", err)
	}

	var files []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		if datasetExtensions[strings.ToLower(filepath.Ext(de.Name()))] {
			files = append(files, filepath.Join(dir, de.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
