// bench-drop measures heap memory before and after transient scope
// drops during a synthetic stepped run.
//
// Usage:
//
//	go run ./scripts/bench-drop --steps 40 --cycle 10 --workers 2 \
//	  --numel 4000000 --profile-dir docs/profiles/drop
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/Sumatoshi-tech/tensorfang/internal/engine"
	"github.com/Sumatoshi-tech/tensorfang/internal/executor"
	"github.com/Sumatoshi-tech/tensorfang/internal/place"
	"github.com/Sumatoshi-tech/tensorfang/internal/program"
	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
)

func main() {
	steps := flag.Int("steps", 40, "Total steps to run")
	cycle := flag.Int("cycle", 10, "Steps per buffering cycle")
	workers := flag.Int("workers", 1, "Number of data-parallel workers")
	numel := flag.Int("numel", 4_000_000, "Elements per transient tensor")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles")
	cpuProfile := flag.Bool("cpu-profile", false, "Write CPU profile to profile-dir/cpu.prof")

	flag.Parse()

	if *profileDir == "" {
		log.Fatal("--profile-dir is required")
	}

	if err := os.MkdirAll(*profileDir, 0o755); err != nil {
		log.Fatalf("mkdir profile-dir: %v", err)
	}

	if *cpuProfile {
		cpuPath := filepath.Join(*profileDir, "cpu.prof")

		cpuFile, cpuErr := os.Create(cpuPath)
		if cpuErr != nil {
			log.Fatalf("create cpu profile: %v", cpuErr)
		}
		defer cpuFile.Close()

		if startErr := pprof.StartCPUProfile(cpuFile); startErr != nil {
			log.Fatalf("start cpu profile: %v", startErr)
		}

		defer pprof.StopCPUProfile()

		log.Printf("CPU profiling enabled -> %s", cpuPath)
	}

	ctx := context.Background()
	prog := buildProgram(*numel)

	root := scope.New()
	transients := make([]*scope.Scope, *workers)
	places := make([]place.Place, *workers)
	workerList := make([]executor.Worker, *workers)

	for i := range transients {
		transients[i] = root.NewChild()
		places[i] = place.Place{Kind: place.CPU, Device: i}
		workerList[i] = executor.Worker{Persistent: root, Transient: transients[i], Place: places[i]}
	}

	eng, err := engine.NewSerial(prog, transients, places)
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}

	pool := place.NewPool()
	defer pool.Close()

	exec, err := executor.New(executor.Config{
		// Drops are forced manually at cycle boundaries below, so the
		// automatic interval must never fire first.
		StepsPerDrop: *steps + 1,
		Workers:      workerList,
		Vars:         prog.Vars,
		Engine:       eng,
		Program:      prog,
		Pool:         pool,
	})
	if err != nil {
		log.Fatalf("build executor: %v", err)
	}

	cycles := planCycles(*steps, *cycle)
	log.Printf("running %d steps in %d cycles (%d workers, %d elements per tensor)",
		*steps, len(cycles), *workers, *numel)

	type heapSnapshot struct {
		label     string
		heapInUse uint64
		heapSys   uint64
		heapIdle  uint64
	}

	var snapshots []heapSnapshot

	takeSnapshot := func(label string) {
		runtime.GC()
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		snapshots = append(snapshots, heapSnapshot{
			label:     label,
			heapInUse: m.HeapInuse,
			heapSys:   m.HeapSys,
			heapIdle:  m.HeapIdle,
		})
		log.Printf("  [heap] %-40s inuse=%6.1f MB  sys=%6.1f MB  idle=%6.1f MB",
			label, float64(m.HeapInuse)/1e6, float64(m.HeapSys)/1e6, float64(m.HeapIdle)/1e6)
	}

	writeHeapProfile := func(name string) {
		runtime.GC()
		runtime.GC()

		path := filepath.Join(*profileDir, name)

		f, ferr := os.Create(path)
		if ferr != nil {
			log.Printf("warning: create heap profile %s: %v", path, ferr)

			return
		}
		defer f.Close()

		if perr := pprof.WriteHeapProfile(f); perr != nil {
			log.Printf("warning: write heap profile %s: %v", path, perr)
		}
	}

	takeSnapshot("before_run")
	writeHeapProfile("heap_before_run.prof")

	for i, c := range cycles {
		if i > 0 {
			log.Printf("  [scope] transient footprints before drop: %v", exec.TransientFootprints())
			takeSnapshot(fmt.Sprintf("cycle_%d_before_drop", i))
			writeHeapProfile(fmt.Sprintf("heap_cycle_%d_before_drop.prof", i))

			exec.DropTransients(ctx)

			takeSnapshot(fmt.Sprintf("cycle_%d_after_drop", i))
			writeHeapProfile(fmt.Sprintf("heap_cycle_%d_after_drop.prof", i))
		}

		log.Printf("running cycle %d/%d (steps %d-%d)", i+1, len(cycles), c.start+1, c.end)

		for s := c.start; s < c.end; s++ {
			if _, runErr := exec.Run(ctx, nil); runErr != nil {
				log.Fatalf("step %d: %v", s+1, runErr)
			}
		}
	}

	takeSnapshot("after_all_cycles")
	writeHeapProfile("heap_after_all_cycles.prof")

	exec.DropTransients(ctx)
	takeSnapshot("after_final_drop")
	writeHeapProfile("heap_after_final_drop.prof")

	fmt.Println()
	fmt.Println("=== Heap Memory Timeline ===")
	fmt.Printf("%-45s %10s %10s %10s\n", "Phase", "InUse(MB)", "Sys(MB)", "Idle(MB)")
	fmt.Println("---------------------------------------------+----------+----------+----------")

	for _, s := range snapshots {
		fmt.Printf("%-45s %10.1f %10.1f %10.1f\n",
			s.label, float64(s.heapInUse)/1e6, float64(s.heapSys)/1e6, float64(s.heapIdle)/1e6)
	}

	fmt.Println()
	fmt.Println("=== Drop Memory Deltas ===")

	for i := 0; i+1 < len(snapshots); i++ {
		curr := snapshots[i]

		next := snapshots[i+1]
		if strings.Contains(curr.label, "before_drop") && strings.Contains(next.label, "after_drop") {
			delta := float64(curr.heapInUse) - float64(next.heapInUse)
			pct := (delta / float64(curr.heapInUse)) * 100
			fmt.Printf("  %s -> %s: %.1f MB freed (%.1f%%)\n",
				curr.label, next.label, delta/1e6, pct)
		}
	}
}

// buildProgram assembles a three-op step touching only transient
// variables, so every allocation it makes is reclaimable at a drop.
func buildProgram(numel int) *program.Program {
	return &program.Program{
		Name: "bench-drop",
		Vars: []program.VarInfo{
			{Name: "x", Kind: scope.KindDense},
			{Name: "y", Kind: scope.KindDense},
			{Name: "z", Kind: scope.KindDense},
		},
		Ops: []program.OpDesc{
			{
				Type:    "uniform_random",
				Outputs: map[string][]string{"Out": {"x"}},
				Attrs:   map[string]any{"shape": []any{numel}, "seed": 1},
			},
			{
				Type:    "scale",
				Inputs:  map[string][]string{"X": {"x"}},
				Outputs: map[string][]string{"Out": {"y"}},
				Attrs:   map[string]any{"scale": 1.5},
			},
			{
				Type:    "sum",
				Inputs:  map[string][]string{"X": {"x", "y"}},
				Outputs: map[string][]string{"Out": {"z"}},
			},
		},
	}
}

type cycleBounds struct {
	start int
	end   int
}

func planCycles(total, cycleSize int) []cycleBounds {
	var cycles []cycleBounds

	for start := 0; start < total; start += cycleSize {
		end := min(start+cycleSize, total)
		cycles = append(cycles, cycleBounds{start: start, end: end})
	}

	return cycles
}
