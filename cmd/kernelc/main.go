package main

import (
	"context"
	"flag"
	"fmt"
	"kernelc/device"
	"kernelc/device/clc"
	"kernelc/meta"
	"kernelc/program"
	"kernelc/trace"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/xyproto/env/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	outPath := flag.String("o", env.Str("KERNELC_OUT"), "Write generated source here (a directory when several manifests are given)")
	kernels := flag.String("kernel", "", "Comma-separated kernels or closures to compile (default: all)")
	comments := flag.Bool("comments", false, "Keep instruction text as comments in the source")
	check := flag.Bool("check", false, "Verify the source with an external OpenCL C compiler")
	clcCmd := flag.String("clc", env.Str("KERNELC_CLC", strings.Join(clc.DefaultCommand, " ")), "Compiler command used by -check")
	jobs := flag.Int("jobs", env.Int("KERNELC_JOBS", 4), "Manifests compiled at once")

	// Trace flags
	traceEnabled := flag.Bool("trace", env.Bool("KERNELC_TRACE"), "Enable compile tracing")
	traceFilter := flag.String("trace-filter", env.Str("KERNELC_TRACE_FILTER"), "Trace filter pattern (glob, e.g., 'Samples.*::Add*')")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: kernelc [flags] manifest.yaml|dir ...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if *traceEnabled {
		filters := splitList(*traceFilter)
		trace.Init(true, filters, os.Stderr)
		log.Printf("Tracing enabled (filters: %v)", filters)
	} else {
		trace.Init(false, nil, nil)
	}

	manifests, err := loadAll(flag.Args())
	if err != nil {
		log.Fatalf("Failed to load manifests: %v", err)
	}
	if len(manifests) == 0 {
		log.Fatalf("No manifests found in %v", flag.Args())
	}

	job := &compileJob{
		names:    splitList(*kernels),
		comments: *comments,
		outPath:  *outPath,
		multiple: len(manifests) > 1,
	}
	if *check {
		job.builder = clc.Parse(*clcCmd)
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(*jobs, 1))
	for _, m := range manifests {
		m := m
		g.Go(func() error {
			return job.run(ctx, m)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("%v", err)
	}
}

// compileJob holds the settings shared by every manifest
type compileJob struct {
	names    []string
	comments bool
	builder  device.Builder
	outPath  string
	multiple bool

	// mu serializes stdout
	mu sync.Mutex
}

// run compiles one manifest into its own program
func (j *compileJob) run(ctx context.Context, m *meta.Manifest) error {
	store, err := meta.NewStoreFrom(m)
	if err != nil {
		return errors.Wrap(err, m.Source)
	}
	p := program.New(store, program.Options{Comments: j.comments, Builder: j.builder})

	entries, err := selectEntries(store, j.names)
	if err != nil {
		return errors.Wrap(err, m.Source)
	}
	if len(entries) == 0 {
		log.Printf("%s: no kernels", m.Source)
		return nil
	}

	for _, e := range entries {
		if err := e.compile(ctx, p); err != nil {
			var me *meta.Error
			if errors.As(err, &me) && me.Source != "" {
				log.Printf("%s: generated source:\n%s", m.Source, me.Source)
			}
			return errors.Wrap(err, m.Source)
		}
	}
	log.Printf("%s: compiled %d entry points, %d functions, %d structs",
		m.Source, len(entries), len(p.Methods()), len(p.Types()))

	return j.write(m, p.Source())
}

// entry is a kernel method or a closure record to compile
type entry struct {
	method  *meta.MethodDesc
	closure *meta.Closure
}

func (e entry) compile(ctx context.Context, p *program.Program) error {
	if e.closure != nil {
		_, err := p.CompileClosure(ctx, e.closure)
		return err
	}
	_, err := p.Compile(ctx, e.method)
	return err
}

// selectEntries resolves names given as Type::Name for kernels or as the
// record type for closures. With no names every static kernel and every
// closure is selected.
func selectEntries(store *meta.Store, names []string) ([]entry, error) {
	var entries []entry
	if len(names) == 0 {
		for _, k := range store.Kernels() {
			if k.Static {
				entries = append(entries, entry{method: k})
			}
		}
		for _, c := range store.Closures() {
			entries = append(entries, entry{closure: c})
		}
		return entries, nil
	}

	for _, name := range names {
		if !strings.Contains(name, "::") {
			c := closureByType(store, name)
			if c == nil {
				return nil, errors.Errorf("no closure over %s", name)
			}
			entries = append(entries, entry{closure: c})
			continue
		}
		m, err := store.MethodByName(name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{method: m})
	}
	return entries, nil
}

func closureByType(store *meta.Store, name string) *meta.Closure {
	for _, c := range store.Closures() {
		if c.Type.FullName() == name {
			return c
		}
	}
	return nil
}

func (j *compileJob) write(m *meta.Manifest, src string) error {
	if j.outPath == "" {
		j.mu.Lock()
		defer j.mu.Unlock()
		if j.multiple {
			fmt.Printf("// %s\n", m.Source)
		}
		fmt.Print(src)
		return nil
	}

	path := j.outPath
	if j.multiple {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return err
		}
		base := strings.TrimSuffix(filepath.Base(m.Source), filepath.Ext(m.Source))
		path = filepath.Join(path, base+".cl")
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		return err
	}
	log.Printf("%s: wrote %s", m.Source, path)
	return nil
}

// loadAll reads manifest files and directories in argument order
func loadAll(paths []string) ([]*meta.Manifest, error) {
	var all []*meta.Manifest
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			ms, err := meta.LoadManifestDir(path)
			if err != nil {
				return nil, err
			}
			all = append(all, ms...)
			continue
		}
		m, err := meta.LoadManifest(path)
		if err != nil {
			return nil, err
		}
		all = append(all, m)
	}
	return all, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
