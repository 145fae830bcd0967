package converter

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/remeh/sizedwaitgroup"
)

// Job is one file conversion in a batch
type Job struct {
	Input  string
	Output string
}

// BatchResult pairs a job with its outcome
type BatchResult struct {
	Job    Job
	Result *Result
	Err    error
}

// JobsFor builds one job per input, writing next to the input or into
// outDir when set, with the given output extension
func JobsFor(inputs []string, outDir, ext string) []Job {
	jobs := make([]Job, 0, len(inputs))
	for _, in := range inputs {
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		dir := outDir
		if dir == "" {
			dir = filepath.Dir(in)
		}
		jobs = append(jobs, Job{Input: in, Output: filepath.Join(dir, base+ext)})
	}
	return jobs
}

// ConvertAll runs the jobs on at most workers goroutines. Results come back
// in job order. Progress messages are not written for batch jobs.
func (c *Converter) ConvertAll(jobs []Job, workers int) []BatchResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]BatchResult, len(jobs))
	wg := sizedwaitgroup.New(workers)
	for i, job := range jobs {
		wg.Add()
		go func(i int, job Job) {
			defer wg.Done()
			conv := New(c.cfg)
			res, err := conv.ConvertFile(job.Input, job.Output)
			results[i] = BatchResult{Job: job, Result: res, Err: err}
		}(i, job)
	}
	wg.Wait()

	return results
}
