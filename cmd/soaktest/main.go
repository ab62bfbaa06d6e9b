// Command soaktest drives a bridge.Engine against a stub TV remote from a
// small script and prints memory usage and engine counters along the way.
//
// Each script line is split like a shell command line:
//
//	connect 192.168.1.20 ggtv
//	key KEYCODE_HOME
//	text 'breaking bad'
//	app youtube
//	repeat 200 key KEYCODE_DPAD_DOWN
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/TienBeta/ggtv-kit/bridge"
)

const defaultScript = `
connect 192.168.1.20 ggtv
pair 1A2B3C
retry
info
app youtube
text 'breaking bad'
repeat 200 key KEYCODE_DPAD_DOWN
key KEYCODE_MEDIA_PLAY_PAUSE
link https://tv.apple.com
sleep 100ms
disconnect
`

type stubFactory struct{}

func (stubFactory) NewRemote(clientName, certFile, keyFile, host string) (bridge.HostRemote, error) {
	return &stubRemote{host: host}, nil
}

// stubRemote pairs on first use and accepts every command.
type stubRemote struct {
	host   string
	paired bool
}

func (r *stubRemote) GenerateCertIfMissing() (bool, error) { return !r.paired, nil }
func (r *stubRemote) Name() (string, error)                { return "Stub TV", nil }
func (r *stubRemote) MAC() (string, error)                 { return "00:00:00:00:00:00", nil }
func (r *stubRemote) StartPairing() error                  { return nil }

func (r *stubRemote) FinishPairing(code string) error {
	if code == "" {
		return errors.New("INVALID_AUTH: empty code")
	}
	r.paired = true
	return nil
}

func (r *stubRemote) Connect(timeoutMillis int64) error {
	if !r.paired {
		return fmt.Errorf("INVALID_AUTH: %s does not know this client", r.host)
	}
	return nil
}

func (r *stubRemote) KeepReconnecting()                      {}
func (r *stubRemote) Disconnect() error                      { return nil }
func (r *stubRemote) SendKeyCommand(command string) error    { return nil }
func (r *stubRemote) SendText(text string) error             { return nil }
func (r *stubRemote) SendLaunchAppCommand(link string) error { return nil }

func (r *stubRemote) DeviceInfo() *bridge.DeviceIdentity {
	return &bridge.DeviceIdentity{Manufacturer: "Stub", Model: "TV", SoftwareVersion: "1", AppVersion: "1"}
}

func (r *stubRemote) IsOn() bool                 { return true }
func (r *stubRemote) CurrentApp() string         { return "" }
func (r *stubRemote) VolumeInfo() *bridge.Volume { return &bridge.Volume{Level: 10, Max: 100} }

type stdoutSink struct{}

func (stdoutSink) Log(level string, message string) {
	fmt.Printf("[%s] %s\n", level, message)
}

func printStats(tag string) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Printf("%s: alloc=%d total=%d sys=%d heapAlloc=%d heapSys=%d stack=%d gcSys=%d otherSys=%d goroutines=%d\n",
		tag, m.Alloc, m.TotalAlloc, m.Sys, m.HeapAlloc, m.HeapSys, m.StackInuse, m.GCSys, m.OtherSys, runtime.NumGoroutine())
}

func main() {
	scriptPath := flag.String("script", "", "script file, defaults to a built-in session")
	configPath := flag.String("config", "", "YAML settings file")
	logLevel := flag.String("log-level", "warn", "log level forwarded to stdout")
	memoryLimit := flag.String("memory-limit", "", "Go heap ceiling, for example 16MiB")
	flag.Parse()

	if err := bridge.SetLogSink(stdoutSink{}, *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var script io.Reader = strings.NewReader(defaultScript)
	if *scriptPath != "" {
		f, err := os.Open(*scriptPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		defer f.Close()
		script = f
	}

	printStats("startup")
	certDir, err := os.MkdirTemp("", "ggtv-soak")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(certDir)

	engine, err := bridge.NewEngine(&bridge.Config{ConfigPath: *configPath, CertDir: certDir, MemoryLimit: *memoryLimit}, stubFactory{})
	if err != nil {
		panic(err)
	}
	printStats("after NewEngine")

	if err := run(engine, script); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	printStats("after script")

	runtime.GC()
	printStats("after GC")
	debug.FreeOSMemory()
	printStats("after FreeOSMemory")
	engine.Cleanup()
	printStats("after Cleanup")

	fmt.Print(engine.Metrics())
}

func run(engine *bridge.Engine, script io.Reader) error {
	scanner := bufio.NewScanner(script)
	line := 0
	for scanner.Scan() {
		line++
		args, err := shlex.Split(scanner.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if len(args) == 0 || strings.HasPrefix(args[0], "#") {
			continue
		}
		if err := step(engine, args); err != nil {
			return fmt.Errorf("line %d: %s: %w", line, args[0], err)
		}
	}
	return scanner.Err()
}

func step(engine *bridge.Engine, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "repeat":
		if len(rest) < 2 {
			return errors.New("usage: repeat N COMMAND")
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := step(engine, rest[1:]); err != nil {
				return err
			}
		}
		printStats(fmt.Sprintf("after %d x %s", n, rest[1]))
		return nil
	case "connect":
		if len(rest) != 2 {
			return errors.New("usage: connect HOST APP")
		}
		res := engine.Connect(rest[0], rest[1])
		fmt.Printf("connect: status=%d message=%q\n", res.Status, res.Message)
		return nil
	case "pair":
		if len(rest) != 1 {
			return errors.New("usage: pair CODE")
		}
		fmt.Printf("pair: %t\n", engine.FinishPairing(rest[0]))
		return nil
	case "retry":
		fmt.Printf("retry: %t\n", engine.RetryConnection())
		return nil
	case "key":
		if len(rest) != 1 {
			return errors.New("usage: key CODE")
		}
		_, err := engine.SendKey(rest[0])
		return err
	case "text":
		return engine.SendText(strings.Join(rest, " "))
	case "app":
		return engine.OpenApp(strings.Join(rest, " "))
	case "link":
		if len(rest) != 1 {
			return errors.New("usage: link URL")
		}
		return engine.SendAppLink(rest[0])
	case "info":
		info := engine.GetDeviceInfo()
		fmt.Printf("info: connected=%t device=%q on=%t volume=%q\n", info.Connected, info.Description, info.IsOn, info.Volume)
		return nil
	case "sleep":
		if len(rest) != 1 {
			return errors.New("usage: sleep DURATION")
		}
		d, err := time.ParseDuration(rest[0])
		if err != nil {
			return err
		}
		time.Sleep(d)
		return nil
	case "disconnect":
		engine.DisconnectFromTV()
		return nil
	default:
		return errors.New("unknown command")
	}
}
