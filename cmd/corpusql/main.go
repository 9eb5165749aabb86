// Command corpusql is a REPL over a single persisted corpus at a time,
// backed by the core engine package.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/corpus"
	"github.com/korpling/graphANNIS-sub001/annis/graphstorage"
)

func main() {
	var dbPath string
	var cacheBudgetMB int64
	var help bool

	flag.StringVar(&dbPath, "db", "", "corpus directory to open on startup")
	flag.Int64Var(&cacheBudgetMB, "cache-mb", 512, "corpus cache budget in megabytes (<=0 disables eviction)")
	flag.BoolVar(&help, "h", false, "show help")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A corpus query engine REPL.\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands: import save load info optimize count find plan update_statistics guess guess_regex memory quit\n")
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	repl := newREPL(cacheBudgetMB << 20)
	if dbPath != "" {
		if err := repl.load(dbPath); err != nil {
			fmt.Fprintf(os.Stderr, "load %s: %v\n", dbPath, err)
		}
	}
	repl.run()
}

// repl holds the CLI's session state: the shared corpus cache, the
// corpus currently in focus, and the engine bound to it.
type repl struct {
	cache    *corpus.Cache
	registry *graphstorage.Registry

	path    string
	handle  *corpus.Handle
	engine  *corpus.Engine
}

func newREPL(cacheBudgetBytes int64) *repl {
	return &repl{
		cache:    corpus.NewCache(cacheBudgetBytes),
		registry: graphstorage.NewRegistry(),
	}
}

func (r *repl) run() {
	fmt.Println("=== corpusql ===")
	fmt.Println("Commands: import save load info optimize count find plan update_statistics guess guess_regex memory quit")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "quit", "exit":
			r.release()
			return
		default:
			if err := r.dispatch(cmd, args); err != nil {
				color.Red("error: %v", err)
			}
		}
	}
	r.release()
}

func (r *repl) dispatch(cmd string, args []string) error {
	switch cmd {
	case "import":
		return fmt.Errorf("import is out of this engine's scope (relANNIS loading is an external collaborator); build a corpus via the annis/corpus package instead")
	case "load":
		if len(args) != 1 {
			return fmt.Errorf("usage: load <dir>")
		}
		return r.load(args[0])
	case "save":
		path := r.path
		if len(args) == 1 {
			path = args[0]
		}
		return r.save(path)
	case "info":
		return r.info()
	case "optimize", "update_statistics":
		return r.updateStatistics()
	case "count":
		if len(args) != 1 {
			return fmt.Errorf("usage: count <query.json>")
		}
		return r.count(args[0])
	case "find":
		if len(args) < 1 {
			return fmt.Errorf("usage: find <query.json> [offset] [limit]")
		}
		return r.find(args)
	case "plan":
		if len(args) != 1 {
			return fmt.Errorf("usage: plan <query.json>")
		}
		return r.plan(args[0])
	case "guess":
		if len(args) < 2 {
			return fmt.Errorf("usage: guess <ns> <name> [value]")
		}
		return r.guess(args, false)
	case "guess_regex":
		if len(args) != 3 {
			return fmt.Errorf("usage: guess_regex <ns> <name> <pattern>")
		}
		return r.guess(args, true)
	case "memory":
		return r.memory()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (r *repl) requireCorpus() error {
	if r.engine == nil {
		return fmt.Errorf("no corpus loaded; use load <dir>")
	}
	return nil
}

func (r *repl) release() {
	if r.handle != nil {
		r.handle.Release()
		r.handle, r.engine = nil, nil
	}
}

func (r *repl) load(path string) error {
	r.release()
	handle, err := r.cache.Acquire(path, func() (*corpus.Corpus, int64, error) {
		c, err := corpus.Load(path, r.registry)
		if err != nil {
			return nil, 0, err
		}
		return c, estimateSize(c), nil
	})
	if err != nil {
		return err
	}
	c, err := handle.Corpus()
	if err != nil {
		handle.Release()
		return err
	}
	r.handle, r.path = handle, path
	r.engine = corpus.NewEngine(c)
	fmt.Printf("loaded %s\n", path)
	return nil
}

func (r *repl) save(path string) error {
	if err := r.requireCorpus(); err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("usage: save <dir>")
	}
	c, err := r.handle.Corpus()
	if err != nil {
		return err
	}
	if err := c.Save(path); err != nil {
		return err
	}
	fmt.Printf("saved to %s\n", path)
	return nil
}

func (r *repl) info() error {
	if err := r.requireCorpus(); err != nil {
		return err
	}
	c, err := r.handle.Corpus()
	if err != nil {
		return err
	}
	fmt.Printf("strings: %d (avg length %.1f)\n", c.Pool.Len(), c.Pool.AvgLength())
	fmt.Printf("nodes: %d\n", len(c.AllNodes()))

	var rows []componentRow
	for _, comp := range c.Components() {
		gs := firstOrNilInfo(c, comp)
		if gs == nil {
			rows = append(rows, componentRow{Type: comp.Type.String(), Layer: comp.Layer, Name: comp.Name})
			continue
		}
		rows = append(rows, componentRow{
			Type: comp.Type.String(), Layer: comp.Layer, Name: comp.Name,
			Stats: gs.GetStatistics(), NumEdges: gs.NumEdges(),
		})
	}
	printComponentTable(rows)
	return nil
}

func firstOrNilInfo(c *corpus.Corpus, comp annis.Component) graphstorage.ReadableGraphStorage {
	gss := c.GraphStorages(comp.Type, comp.Layer, comp.Name)
	if len(gss) == 0 {
		return nil
	}
	return gss[0]
}

func (r *repl) updateStatistics() error {
	if err := r.requireCorpus(); err != nil {
		return err
	}
	r.engine.UpdateStatistics()
	fmt.Println("statistics updated")
	return nil
}

func (r *repl) count(path string) error {
	if err := r.requireCorpus(); err != nil {
		return err
	}
	c, err := r.handle.Corpus()
	if err != nil {
		return err
	}
	q, err := loadQuery(c, path)
	if err != nil {
		return err
	}
	n, err := r.engine.Count(q)
	if err != nil {
		return err
	}
	fmt.Printf("%d\n", n)
	return nil
}

func (r *repl) find(args []string) error {
	if err := r.requireCorpus(); err != nil {
		return err
	}
	c, err := r.handle.Corpus()
	if err != nil {
		return err
	}
	q, err := loadQuery(c, args[0])
	if err != nil {
		return err
	}
	offset, limit := 0, -1
	if len(args) > 1 {
		offset, _ = strconv.Atoi(args[1])
	}
	if len(args) > 2 {
		limit, _ = strconv.Atoi(args[2])
	}
	rows, err := r.engine.Find(q, offset, limit)
	if err != nil {
		return err
	}
	printResultTable(rows)
	return nil
}

func (r *repl) plan(path string) error {
	if err := r.requireCorpus(); err != nil {
		return err
	}
	c, err := r.handle.Corpus()
	if err != nil {
		return err
	}
	q, err := loadQuery(c, path)
	if err != nil {
		return err
	}
	node, err := r.engine.Plan(q)
	if err != nil {
		return err
	}
	fmt.Print(corpus.FormatPlan(node, true))
	return nil
}

func (r *repl) guess(args []string, regex bool) error {
	if err := r.requireCorpus(); err != nil {
		return err
	}
	c, err := r.handle.Corpus()
	if err != nil {
		return err
	}
	ac := queryAnnotationConstraint(args, regex)
	spec := nodeSpecFromConstraint(ac)
	fmt.Printf("%.0f\n", c.EstimateNodeCount(spec))
	return nil
}

func (r *repl) memory() error {
	entries, used, budget := r.cache.Stats()
	fmt.Printf("cached corpora: %d\n", entries)
	fmt.Printf("estimated bytes: %d / %d\n", used, budget)
	return nil
}
