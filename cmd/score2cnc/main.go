// Package main is the entry point for score2cnc CLI
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gen2brain/beeep"
	"github.com/hako/durafmt"
	"github.com/james-see/score2cnc/pkg/api"
	"github.com/james-see/score2cnc/pkg/config"
	"github.com/james-see/score2cnc/pkg/converter"
	"github.com/james-see/score2cnc/pkg/converter/devices"
	"github.com/james-see/score2cnc/pkg/score"
	"github.com/james-see/score2cnc/pkg/tui"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile  string
	configPath  string
	deviceName  string
	tempo       float64
	speedPerHz  float64
	repeatGap   float64
	fillFrac    float64
	onExhausted string
	scoreTempo  bool
	maxSteps    int
	quiet       bool
	force       bool
	serverPort  int
	openBrowser bool
	jobs        int
	outDir      string
	batchExt    string
	notify      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "score2cnc",
	Short: "Play three-part scores on a CNC machine",
	Long: `score2cnc turns a three-part score into a G-code program whose
stepper motors sing the music: each part drives one axis, and the
feedrate makes the motor whine at the note's pitch.

Reads MusicXML (.musicxml, .xml), compressed MusicXML (.mxl) and
standard MIDI files (.mid).

Examples:
  score2cnc convert hark.musicxml -o hark.nc
  score2cnc preview hark.musicxml -o hark-preview.mid
  score2cnc inspect hark.mxl --tempo 90
  score2cnc batch carols/*.musicxml --out-dir programs --jobs 4
  score2cnc config init
  score2cnc tui
  score2cnc serve --port 8080`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var convertCmd = &cobra.Command{
	Use:   "convert <score>",
	Short: "Convert a score to G-code",
	Long: `Converts a score to the format implied by the output extension:
.nc, .gcode, .ngc or .tap for G-code, .mid for a MIDI preview.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var previewCmd = &cobra.Command{
	Use:   "preview <score>",
	Short: "Render the quantized motion plan to MIDI",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <score>",
	Short: "Show what a conversion would produce",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var batchCmd = &cobra.Command{
	Use:   "batch <score>...",
	Short: "Convert many scores concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatch,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List machine profiles",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (default ~/.config/score2cnc/config.yaml)")
	pf.StringVarP(&deviceName, "device", "d", "", fmt.Sprintf("Machine profile (%s)", strings.Join(devices.IDs(), ", ")))
	pf.Float64VarP(&tempo, "tempo", "t", converter.DefaultTempo, "Tempo in quarter notes per minute")
	pf.Float64Var(&speedPerHz, "speed-per-hz", converter.DefaultSpeedPerHz, "Feedrate in mm/min per Hz")
	pf.Float64Var(&repeatGap, "repeat-gap", converter.DefaultRepeatGap, "Gap between repeated notes in seconds")
	pf.Float64Var(&fillFrac, "fill-frac", converter.DefaultFillFrac, "Frequency fraction of the repeat filler")
	pf.StringVar(&onExhausted, "on-exhausted", string(converter.ExhaustedHold), "When a part ends early: hold or fail")
	pf.BoolVar(&scoreTempo, "score-tempo", false, "Use the tempo embedded in the score")
	pf.IntVar(&maxSteps, "max-steps", converter.DefaultMaxSteps, "Largest sampling grid a score may need")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress progress messages")

	// convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default <score>.nc)")

	// preview command
	previewCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path (default <score>-preview.mid)")

	// batch command
	batchCmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "Conversions to run at once")
	batchCmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for outputs (default next to each score)")
	batchCmd.Flags().StringVar(&batchExt, "ext", ".nc", "Output extension: .nc, .gcode, .ngc, .tap or .mid")
	batchCmd.Flags().BoolVar(&notify, "notify", false, "Show a desktop notification when done")

	// config init command
	configInitCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")
	serveCmd.Flags().BoolVar(&openBrowser, "open", false, "Open the Swagger UI in a browser")

	// Add commands
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig layers the config file over the machine profile, then applies
// the flags given on the command line
func loadConfig(cmd *cobra.Command) (converter.Config, error) {
	f, err := config.Load(configPath, deviceName)
	if err != nil {
		return converter.Config{}, err
	}
	cfg := f.Config

	flags := cmd.Flags()
	if flags.Changed("tempo") {
		cfg.Tempo = tempo
	}
	if flags.Changed("speed-per-hz") {
		cfg.SpeedPerHz = speedPerHz
	}
	if flags.Changed("repeat-gap") {
		cfg.RepeatGap = repeatGap
	}
	if flags.Changed("fill-frac") {
		cfg.FillFrac = fillFrac
	}
	if flags.Changed("on-exhausted") {
		cfg.OnExhausted = converter.ExhaustedPolicy(onExhausted)
	}
	if flags.Changed("score-tempo") {
		cfg.UseScoreTempo = scoreTempo
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps = maxSteps
	}

	return cfg, cfg.Validate()
}

func newConverter(cmd *cobra.Command) (*converter.Converter, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	conv := converter.New(cfg)
	if !quiet {
		conv.SetProgress(cmd.OutOrStdout())
	}
	return conv, nil
}

func getOutputPath(input, suffix string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + suffix
}

func playTime(seconds float64) string {
	return durafmt.Parse(time.Duration(seconds * float64(time.Second))).LimitFirstN(2).String()
}

func printResult(w io.Writer, res *converter.Result) {
	if quiet {
		return
	}
	fmt.Fprintf(w, "Converted %s -> %s (%s)\n", res.Input, res.Output, humanize.Bytes(uint64(res.Bytes)))
	fmt.Fprintf(w, "%s spans from %s grid steps, play time %s\n",
		humanize.Comma(int64(len(res.Plan.Spans))), humanize.Comma(int64(res.Plan.Steps)), playTime(res.Plan.Seconds()))
	if res.Format == converter.FormatGCode {
		fmt.Fprintf(w, "%s moves, %s dwells, max feedrate %g mm/min\n",
			humanize.Comma(int64(res.Stats.Moves)), humanize.Comma(int64(res.Stats.Dwells)), res.Stats.MaxFeedrate)
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	conv, err := newConverter(cmd)
	if err != nil {
		return err
	}

	res, err := conv.ConvertFile(args[0], getOutputPath(args[0], ".nc"))
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	output := getOutputPath(args[0], "-preview.mid")
	if converter.DetectOutputFormat(output) != converter.FormatPreview {
		return fmt.Errorf("preview output must be a .mid file, got %s", output)
	}

	conv, err := newConverter(cmd)
	if err != nil {
		return err
	}

	res, err := conv.ConvertFile(args[0], output)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := score.Load(args[0])
	if err != nil {
		return err
	}
	report, err := converter.New(cfg).Inspect(s)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if _, err := report.WriteTo(w); err != nil {
		return err
	}
	fmt.Fprintf(w, "Play time:    %s\n", playTime(report.Seconds))
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ext := batchExt
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if converter.DetectOutputFormat(ext) == converter.FormatUnknown {
		return fmt.Errorf("unsupported output extension %q", batchExt)
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	results := converter.New(cfg).ConvertAll(converter.JobsFor(args, outDir, ext), jobs)

	w := cmd.OutOrStdout()
	var failed int
	var total int64
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s: %v\n", r.Job.Input, r.Err)
			continue
		}
		total += r.Result.Bytes
		if !quiet {
			fmt.Fprintf(w, "✓ %s -> %s (%s, %s)\n", r.Job.Input, r.Job.Output,
				humanize.Bytes(uint64(r.Result.Bytes)), playTime(r.Result.Plan.Seconds()))
		}
	}

	summary := fmt.Sprintf("%d of %d scores converted, %s written in %s",
		len(results)-failed, len(results), humanize.Bytes(uint64(total)), playTime(time.Since(start).Seconds()))
	if !quiet {
		fmt.Fprintln(w, summary)
	}
	if notify {
		notifyDesktop("score2cnc batch finished", summary)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, len(results))
	}
	return nil
}

// notifyDesktop shows a desktop notification, best-effort and non-fatal
func notifyDesktop(title, body string) {
	// Headless Linux has nowhere to show it
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return
	}
	_ = beeep.Notify(title, body, "")
}

func runDevices(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	for _, m := range devices.List() {
		env := m.Envelope()
		fmt.Fprintf(w, "%-10s %s: %s\n", m.ID(), m.Name(), m.Description())
		fmt.Fprintf(w, "%-10s X %g..%g  Y %g..%g  Z %g..%g mm, %g mm/min per Hz\n", "",
			env[converter.AxisX].Min, env[converter.AxisX].Max,
			env[converter.AxisY].Min, env[converter.AxisY].Max,
			env[converter.AxisZ].Min, env[converter.AxisZ].Max,
			m.SpeedPerHz())
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	f, err := config.Parse(nil, deviceName)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return tui.Run(cfg)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	if openBrowser {
		url := fmt.Sprintf("http://localhost:%d/swagger/index.html", serverPort)
		go func() {
			time.Sleep(500 * time.Millisecond)
			if err := browser.OpenURL(url); err != nil {
				fmt.Fprintf(os.Stderr, "Could not open browser: %v\n", err)
			}
		}()
	}
	return api.StartServer(serverPort)
}
