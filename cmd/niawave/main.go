package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/integrii/flaggy"
	"github.com/niawave/niawave"
	"github.com/niawave/niawave/nia"
	"github.com/niawave/niawave/packets"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AppName is the name of the program.
const AppName = "niawave"

// AppDesc is the description shown in the help text.
const AppDesc = "Acquire NIA bio-signals, analyze them, and publish waveform and spectrogram frames"

var githash = "githash not computed"
var gitdate = "git date not computed"
var buildDate = "build date not computed"

type options struct {
	cpuprofile string
	memprofile string
	noHardware bool
	verbose    bool
}

// makeFileExist checks that dir/filename exists, and creates the directory
// and file if it doesn't.
func makeFileExist(dir, filename string) (string, error) {
	// Replace 1 instance of "$HOME" in the path with the actual home directory.
	if strings.Contains(dir, "$HOME") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = strings.Replace(dir, "$HOME", home, 1)
	}

	if err := os.MkdirAll(dir, 0775); err != nil {
		return "", err
	}

	fullname := path.Join(dir, filename)
	if _, err := os.Stat(fullname); os.IsNotExist(err) {
		f, err2 := os.OpenFile(fullname, os.O_WRONLY|os.O_CREATE, 0664)
		if err2 != nil {
			return "", err2
		}
		f.Close()
	}
	return fullname, nil
}

// setupViper says where to find config files, registers the defaults, and
// reads the first config file found.
func setupViper() error {
	niawave.SetConfigDefaults()

	dotNiawave := filepath.Join("$HOME", ".niawave")
	const filename string = "config"
	const suffix string = ".yaml"
	if _, err := makeFileExist(dotNiawave, filename+suffix); err != nil {
		return err
	}

	viper.SetConfigName(filename)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(filepath.FromSlash("/etc/niawave"))
	viper.AddConfigPath(dotNiawave)
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %s", err)
	}
	return nil
}

func startLogger(pfname string) *log.Logger {
	return log.New(&lumberjack.Logger{
		Filename:   pfname,
		MaxSize:    10,   // megabytes after which new file is created
		MaxBackups: 4,    // number of backups
		MaxAge:     180,  // days
		Compress:   true, // whether to gzip the backups
	}, "", log.LstdFlags)
}

func doFlags(opts *options) *flaggy.Subcommand {
	parser := flaggy.NewParser(AppName)
	parser.Description = AppDesc
	parser.Version = niawave.Build.Version

	inspectCmd := flaggy.Subcommand{
		Name:        "inspect",
		ShortName:   "i",
		Description: "open the device, print its descriptor, and quit",
	}
	parser.AttachSubcommand(&inspectCmd, 1)

	parser.String(&opts.cpuprofile, "", "cpuprofile", "write CPU profile to given file")
	parser.String(&opts.memprofile, "", "memprofile", "write memory profile to given file")
	parser.Bool(&opts.noHardware, "n", "nohardware", "simulate the device instead of opening it")
	parser.Bool(&opts.verbose, "v", "verbose", "log every frame")

	chk(parser.Parse(), "failed to parse arguments")
	return &inspectCmd
}

// openDevice opens and resets the channel to read from. On failure the
// returned Channeler is nil.
func openDevice(cfg niawave.DeviceConfig, noHardware bool) (nia.Channeler, error) {
	if noHardware {
		sim, err := nia.NewNoHardware(packets.MaxSamples,
			nia.SineSource(1<<23, 1<<20, 40, niawave.WindowSize))
		if err != nil {
			return nil, err
		}
		sim.SetReadPeriod(4 * time.Millisecond)
		if err := nia.Connect(sim); err != nil {
			return nil, err
		}
		return sim, nil
	}

	dev, err := nia.Open(cfg.VendorID, cfg.ProductID, cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

func main() {
	buildDate = strings.Replace(buildDate, ".", " ", -1) // workaround for Make problems
	niawave.Build.Date = buildDate
	niawave.Build.Githash = githash
	niawave.Build.Gitdate = gitdate
	niawave.Build.Summary = fmt.Sprintf("niawave version %s (git commit %s of %s)", niawave.Build.Version, githash, gitdate)
	if host, err := os.Hostname(); err == nil {
		niawave.Build.Host = host
	} else {
		niawave.Build.Host = "host not detected"
	}

	var opts options
	inspectCmd := doFlags(&opts)

	banner := fmt.Sprintf("\nThis is niawave version %s (git commit %s)\n", niawave.Build.Version, githash)
	fmt.Print(banner)
	fmt.Printf("Built on go version %s, running on %d CPUs.\n", runtime.Version(), runtime.NumCPU())

	if err := run(opts, inspectCmd.Used, banner); err != nil {
		niawave.ProblemLogger.Printf("Exiting: %v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run starts the loggers, reads the configuration, opens the device, and
// serves frames until interrupted. Deferred cleanup all happens here, so
// main can exit non-zero afterwards.
func run(opts options, inspect bool, banner string) error {
	if opts.cpuprofile != "" {
		f, err := os.Create(opts.cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	// Start logging problems and updates to 2 log files.
	logdir := filepath.Join("$HOME", ".niawave", "logs")
	problemname, err := makeFileExist(logdir, "problems.log")
	chk(err, "failed to create problem log")
	logname, err := makeFileExist(logdir, "updates.log")
	chk(err, "failed to create update log")
	niawave.ProblemLogger = startLogger(problemname)
	niawave.UpdateLogger = startLogger(logname)
	fmt.Printf("Logging problems       to %s\n", problemname)
	fmt.Printf("Logging client updates to %s\n\n", logname)
	niawave.UpdateLogger.Printf("\n\n\n\n%s", banner)

	// Find config file, creating it if needed, and read it.
	chk(setupViper(), "failed to read config")
	cfg, err := niawave.LoadConfig()
	chk(err, "bad configuration")
	niawave.SetPortnumbers(cfg.PortBase)
	opts.verbose = opts.verbose || cfg.Verbose

	// The device is opened exactly once. If that fails, we run disconnected
	// until the process exits.
	device, err := niawave.UseDevice(openDevice(cfg.Device, opts.noHardware))
	chk(err, "failed to open device")
	if device == nil {
		fmt.Println("No device: generating synthetic data")
	}

	if inspect {
		if ins, ok := device.(interface{ Inspect() string }); ok {
			fmt.Println(ins.Inspect())
		} else {
			fmt.Println("no device")
		}
		if device != nil {
			device.Close()
		}
		return nil
	}

	p := niawave.NewPipeline(device)
	p.SetReadTimeout(cfg.Device.Timeout)
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	updates := niawave.NewUpdateQueue()
	abort := make(chan struct{})
	go func() {
		if err := niawave.RunClientUpdater(niawave.Ports.Status, updates.Out(), abort); err != nil {
			niawave.ProblemLogger.Print(err)
		}
	}()

	publisher, err := niawave.NewFramePublisher(niawave.Ports.Frames)
	chk(err, "failed to start frame publisher")
	defer publisher.Close()

	hub := niawave.NewWebSocketHub()
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	server := &http.Server{Addr: fmt.Sprintf(":%d", niawave.Ports.WebSocket), Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			niawave.ProblemLogger.Printf("WebSocket server: %v", err)
		}
	}()
	fmt.Printf("Status on port %d, frames on port %d, WebSocket on port %d\n",
		niawave.Ports.Status, niawave.Ports.Frames, niawave.Ports.WebSocket)

	sinks := []niawave.FrameSink{publisher, hub}
	if opts.verbose {
		sinks = append(sinks, niawave.FrameSinkFunc(func(f *niawave.Frame) error {
			niawave.UpdateLogger.Printf("frame %s cycle %d peak %d bands %v", f.ID, f.Cycle, f.Peak, f.Bands)
			return nil
		}))
	}
	runErr := niawave.Run(ctx, p, cfg.Tick, updates.In(), sinks...)

	shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
	server.Shutdown(shutdown)
	cancel()
	close(updates.In())
	close(abort)
	writeMemoryProfile(opts.memprofile)
	return runErr
}

// writeMemoryProfile writes the memory use profile to the indicated file.
// If memprofile is empty, do not write.
func writeMemoryProfile(memprofile string) {
	if memprofile == "" {
		return
	}

	f, err := os.Create(memprofile)
	if err != nil {
		log.Fatal("could not create memory profile: ", err)
	}
	defer f.Close()
	runtime.GC() // get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Fatal("could not write memory profile: ", err)
	}
}

func chk(err error, wrap string) {
	if err != nil {
		log.Fatalln(wrap+": ", err)
	}
}
