// Command gcstress exercises the collector against the reference vm host:
// it builds randomized object graphs, churns references through barriered
// stores, and drives incremental collection cycles, printing statistics and
// optional heap dumps. An interactive mode exposes the same operations as
// commands for poking at heap state by hand.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/google/shlex"
	"github.com/inhies/go-bytesize"

	"github.com/mirin-js/gc"
	"github.com/mirin-js/gc/gcdebug"
	"github.com/mirin-js/gc/vm"
)

func main() {
	var (
		profilePath = flag.String("profile", "", "YAML tuning profile")
		iters       = flag.Int("iters", 50, "number of churn iterations")
		count       = flag.Int("count", 1000, "objects allocated per iteration")
		seed        = flag.Int64("seed", 1, "PRNG seed")
		dump        = flag.Bool("dump", false, "dump the heap after the run")
		interactive = flag.Bool("i", false, "interactive mode")
		noColor     = flag.Bool("no-color", false, "disable colorized output")
	)
	flag.Parse()

	profile := gc.DefaultProfile()
	if *profilePath != "" {
		var err error
		profile, err = gc.LoadProfileFile(*profilePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "gcstress:", err)
			os.Exit(1)
		}
	}

	s := &session{
		rt:   vm.New(profile),
		rng:  rand.New(rand.NewSource(*seed)),
		opts: gcdebug.Options{KindName: vm.KindName, NoColor: *noColor, Max: 64},
	}

	if *interactive {
		s.repl()
		return
	}

	for i := 0; i < *iters; i++ {
		if err := s.churn(*count); err != nil {
			fmt.Fprintln(os.Stderr, "gcstress:", err)
			os.Exit(1)
		}
	}
	reclaimed := s.rt.Collect()
	fmt.Printf("final cycle reclaimed %d objects\n", reclaimed)
	s.stats()
	if *dump {
		if err := gcdebug.DumpHeap(gcdebug.Stdout(), s.rt.Heap, s.opts); err != nil {
			fmt.Fprintln(os.Stderr, "gcstress:", err)
			os.Exit(1)
		}
	}
}

type session struct {
	rt   *vm.Runtime
	rng  *rand.Rand
	opts gcdebug.Options

	// retained is the persistent root: a slice of the survivors of each
	// churn round.
	retained []gc.Ptr[vm.Object]
	global   int
	rootArr  gc.Ptr[vm.Array]
}

// churn allocates a wave of linked objects, keeps a random subset reachable
// from the persistent root, and lets the allocation checkpoints drive
// collection.
func (s *session) churn(count int) error {
	const keepEvery = 10

	scope := s.rt.Roots.OpenScope()
	defer scope.Close()

	// The newest link roots the whole wave: every object chains to its
	// predecessor through the prototype link, so keeping the head in a
	// scope handle keeps the wave reachable across collection checkpoints.
	head := gc.Root(scope, gc.Ptr[vm.Object]{})
	for i := 0; i < count; i++ {
		obj, err := s.rt.NewObject(head.Ptr())
		if err != nil {
			return err
		}
		head.Set(obj)
		if s.rng.Intn(keepEvery) == 0 {
			// Keep the survivor but cut the chain behind it, so it anchors
			// only its own segment. The scope slot keeps it reachable until
			// the root array is rebuilt below.
			gc.Root(scope, obj)
			s.retained = append(s.retained, obj)
			if len(s.retained) > 4096 {
				s.retained = s.retained[len(s.retained)-4096:]
			}
			head.Set(gc.Ptr[vm.Object]{})
		}
		s.rt.MaybeCollect()
	}

	// Refresh the reachable root array from the retained set.
	arr, err := s.rt.NewArray(len(s.retained))
	if err != nil {
		return err
	}
	for i, obj := range s.retained {
		s.rt.SetElem(arr, i, obj)
	}
	if s.rootArr.IsNil() {
		s.global = vm.AddGlobal(s.rt, arr)
	} else {
		vm.SetGlobal(s.rt, s.global, arr)
	}
	s.rootArr = arr
	return nil
}

func (s *session) stats() {
	var st gc.Stats
	s.rt.Heap.ReadStats(&st)
	fmt.Println(st)
	fmt.Printf("retained set: %d objects, live bytes: %s\n",
		len(s.retained), bytesize.New(float64(st.BytesAllocated)))
}

func (s *session) repl() {
	in := bufio.NewScanner(os.Stdin)
	fmt.Println("gcstress interactive; try: alloc 100 | start | step | finish | collect | stats | dump | quit")
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		args, err := shlex.Split(in.Text())
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if err := s.run(args); err != nil {
			if err == errQuit {
				return
			}
			fmt.Println("error:", err)
		}
	}
}

var errQuit = fmt.Errorf("quit")

func (s *session) run(args []string) error {
	switch args[0] {
	case "alloc":
		n := 100
		if len(args) > 1 {
			var err error
			if n, err = strconv.Atoi(args[1]); err != nil {
				return err
			}
		}
		return s.churn(n)
	case "start":
		s.rt.Heap.StartGC(s.rt)
		fmt.Println("phase:", s.rt.Heap.Phase())
	case "step":
		more := s.rt.Heap.Step(s.rt)
		fmt.Printf("phase: %s, more work: %v\n", s.rt.Heap.Phase(), more)
	case "finish":
		n := s.rt.Heap.FinishGC(s.rt)
		ran := s.rt.RunFinalizers()
		fmt.Printf("reclaimed %d objects, ran %d finalizers\n", n, ran)
	case "collect":
		fmt.Printf("reclaimed %d objects\n", s.rt.Collect())
	case "stats":
		s.stats()
	case "dump":
		return gcdebug.DumpHeap(gcdebug.Stdout(), s.rt.Heap, s.opts)
	case "drop":
		s.retained = nil
		if !s.rootArr.IsNil() {
			s.rt.DropGlobal(s.global)
			s.rootArr = gc.Ptr[vm.Array]{}
		}
		fmt.Println("persistent roots dropped")
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}
