//go:build ignore

// build.go - Kalpem Dashboard Build System
// Usage: go run build.go [-target=TARGET]
// Targets: all, dashboard, export, clean, test, release

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const module = "kalpem"

var (
	rootDir string
	distDir string

	// key = directory under cmd/, value = output name without extension
	executables = map[string]string{
		"dashboard":     "kalpem-dashboard",
		"kalpem-export": "kalpem-export",
	}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("Failed to get current directory: %v", err))
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")

	if _, err := os.Stat(filepath.Join(rootDir, "go.mod")); err != nil {
		panic(fmt.Sprintf("go.mod not found in %s; run build.go from the module root", rootDir))
	}
}

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	fmt.Printf("%s=== Kalpem Dashboard Build ===%s\n", colorCyan, colorReset)
	start := time.Now()

	switch *target {
	case "all":
		for _, name := range []string{"dashboard", "kalpem-export"} {
			buildExecutable(name, false, *verbose)
		}
		copyData(*verbose)
	case "dashboard":
		buildExecutable("dashboard", false, *verbose)
	case "export":
		buildExecutable("kalpem-export", false, *verbose)
	case "clean":
		clean()
	case "test":
		runTests(*verbose)
	case "release":
		clean()
		for _, name := range []string{"dashboard", "kalpem-export"} {
			buildExecutable(name, true, *verbose)
		}
		copyData(*verbose)
	default:
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(start).Round(time.Millisecond)))
}

func printInfo(msg string)    { fmt.Printf("%s[INFO]%s %s\n", colorCyan, colorReset, msg) }
func printSuccess(msg string) { fmt.Printf("%s[OK]%s %s\n", colorGreen, colorReset, msg) }
func printError(msg string)   { fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg) }
func printWarning(msg string) { fmt.Printf("%s[WARN]%s %s\n", colorYellow, colorReset, msg) }

func buildExecutable(name string, release, verbose bool) {
	outName, ok := executables[name]
	if !ok {
		printError(fmt.Sprintf("Unknown executable: %s", name))
		os.Exit(1)
	}
	if runtime.GOOS == "windows" {
		outName += ".exe"
	}

	printInfo(fmt.Sprintf("Building %s...", name))

	ldflags := fmt.Sprintf("-X %s/pkg/contracts.BuildTime=%s -X %s/pkg/contracts.GitCommit=%s",
		module, time.Now().UTC().Format(time.RFC3339), module, gitCommit())
	if release {
		ldflags = "-s -w " + ldflags
	}

	args := []string{"build"}
	if verbose {
		args = append(args, "-v")
	}
	if release {
		args = append(args, "-trimpath")
	}
	args = append(args, "-ldflags", ldflags, "-o", filepath.Join(distDir, outName), "./cmd/"+name)

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if verbose {
		fmt.Printf("go %s\n", strings.Join(args, " "))
	}
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", name, err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Built %s", outName))
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

// copyData ships the bundled default calendar next to the binaries.
func copyData(verbose bool) {
	src := filepath.Join(rootDir, "data", "kalpem.csv")
	dest := filepath.Join(distDir, "data", "kalpem.csv")
	if _, err := os.Stat(src); err != nil {
		printWarning("data/kalpem.csv not found, skipping")
		return
	}
	if err := copyFile(src, dest); err != nil {
		printError(fmt.Sprintf("Failed to copy default data: %v", err))
		os.Exit(1)
	}
	if verbose {
		printInfo(fmt.Sprintf("Copied %s", dest))
	}
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func clean() {
	printInfo("Cleaning dist...")
	if err := os.RemoveAll(distDir); err != nil {
		printError(fmt.Sprintf("Failed to clean: %v", err))
		os.Exit(1)
	}
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

func showHelp() {
	fmt.Println(`Usage: go run build.go [-target=TARGET] [-v]

Targets:
  all        Build both binaries and copy data/kalpem.csv into dist (default)
  dashboard  Build the dashboard server
  export     Build the kalpem-export command
  clean      Remove dist
  test       Run go test -race ./...
  release    Clean, then build stripped binaries`)
}
