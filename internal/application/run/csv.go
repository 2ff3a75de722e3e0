package run

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/turtacn/MolScore/pkg/errors"
)

// CSVSink writes step records as scores.csv rows: one row per molecule with
// the step index, SMILES, total score, and one column per component in
// configuration order.
type CSVSink struct {
	w          *csv.Writer
	closer     io.Closer
	components []string
	wroteHead  bool
}

// NewCSVSink writes rows to w using the given component column order.  If w
// also implements io.Closer it is closed with the sink.
func NewCSVSink(w io.Writer, componentNames []string) *CSVSink {
	s := &CSVSink{
		w:          csv.NewWriter(w),
		components: componentNames,
	}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// WriteStep appends one row per molecule in the record.
func (s *CSVSink) WriteStep(ctx context.Context, record StepRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.wroteHead {
		head := append([]string{"step", "smiles", "total_score"}, s.components...)
		if err := s.w.Write(head); err != nil {
			return errors.Wrap(err, errors.ErrCodeArtifactWriteFailed, "failed to write csv header")
		}
		s.wroteHead = true
	}

	row := make([]string, 0, 3+len(s.components))
	for _, mol := range record.Scores {
		row = row[:0]
		row = append(row,
			strconv.Itoa(record.Step),
			mol.SMILES,
			formatScore(mol.Total),
		)
		byName := make(map[string]float64, len(mol.Components))
		for _, c := range mol.Components {
			byName[c.Name] = c.Transformed
		}
		for _, name := range s.components {
			row = append(row, formatScore(byName[name]))
		}
		if err := s.w.Write(row); err != nil {
			return errors.Wrap(err, errors.ErrCodeArtifactWriteFailed, "failed to write csv row")
		}
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeArtifactWriteFailed, "failed to flush csv rows")
	}
	return nil
}

// Close flushes buffered rows and closes the underlying writer when it
// supports closing.
func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeArtifactWriteFailed, "failed to flush csv rows")
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

//Personal.AI order the ending
