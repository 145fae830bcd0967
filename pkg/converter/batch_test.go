package converter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/james-see/score2cnc/pkg/score"
)

func TestJobsFor(t *testing.T) {
	jobs := JobsFor([]string{"a/hark.musicxml", "b/joy.mid"}, "", ".nc")
	want := []Job{
		{Input: "a/hark.musicxml", Output: filepath.Join("a", "hark.nc")},
		{Input: "b/joy.mid", Output: filepath.Join("b", "joy.nc")},
	}
	for i := range want {
		if jobs[i] != want[i] {
			t.Errorf("job %d = %+v, want %+v", i, jobs[i], want[i])
		}
	}

	jobs = JobsFor([]string{"a/hark.musicxml"}, "out", ".mid")
	if jobs[0].Output != filepath.Join("out", "hark.mid") {
		t.Errorf("Output = %q with an out dir", jobs[0].Output)
	}
}

func TestConvertAll(t *testing.T) {
	dir := t.TempDir()
	var inputs []string
	for _, name := range []string{"one", "two", "three", "four"} {
		p := filepath.Join(dir, name+".musicxml")
		if err := os.WriteFile(p, []byte(threePartXML), 0644); err != nil {
			t.Fatal(err)
		}
		inputs = append(inputs, p)
	}
	inputs = append(inputs, filepath.Join(dir, "missing.musicxml"))

	results := New(DefaultConfig()).ConvertAll(JobsFor(inputs, "", ".nc"), 2)
	if len(results) != len(inputs) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(inputs))
	}

	for i, r := range results[:4] {
		if r.Job.Input != inputs[i] {
			t.Errorf("result %d is for %s, want %s", i, r.Job.Input, inputs[i])
		}
		if r.Err != nil {
			t.Errorf("job %d error = %v", i, r.Err)
			continue
		}
		if _, err := os.Stat(r.Job.Output); err != nil {
			t.Errorf("job %d output missing: %v", i, err)
		}
	}

	var pe *score.ParseError
	if last := results[4]; !errors.As(last.Err, &pe) {
		t.Errorf("missing input error = %v, want *score.ParseError", last.Err)
	}
}
