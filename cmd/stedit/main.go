// Command stedit is a batch driver for the slicetable engine: it loads a
// document, applies a scripted or generated edit sequence, verifies the
// tree invariants, and writes the result.
//
// With no script, it runs the classic churn workload: iters rounds of a
// 5-byte delete and a 5-byte insert marching through the document.
// Scripts are JSON:
//
//	{"ops": [
//	  {"op": "insert", "pos": 34, "text": "thang"},
//	  {"op": "delete", "pos": 34, "len": 5}
//	]}
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/slicetable"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		iters  = flag.Int("iters", 100, "churn iterations when no script is given")
		script = flag.String("script", "", "JSON edit script to apply instead of the churn workload")
		out    = flag.String("o", "", "write the resulting document to this file (default stdout)")
		dot    = flag.String("dot", "", "write the tree structure in graphviz form to this file")
		check  = flag.Bool("check", true, "verify tree invariants after every script op or churn delete/insert pair")
		stats  = flag.Bool("stats", false, "print a JSON stats summary to stderr")
	)
	log.AddFlags()
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: stedit [flags] <file>\n")
		flag.PrintDefaults()
		return 2
	}

	st, err := slicetable.FromFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "stedit: %v\n", err)
		return 1
	}
	defer st.Close()
	log.Printf("loaded %s: %d bytes, %d lines", flag.Arg(0), st.Size(), st.LineCount())

	var edits int
	if *script != "" {
		edits, err = applyScript(st, *script, *check)
	} else {
		edits, err = churn(st, *iters, *check)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "stedit: %v\n", err)
		return 1
	}

	if *dot != "" {
		f, err := os.Create(*dot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "stedit: %v\n", err)
			return 1
		}
		if err := st.WriteDot(f); err == nil {
			err = f.Close()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "stedit: %v\n", err)
			return 1
		}
	}

	w := os.Stdout
	if *out != "" {
		if w, err = os.Create(*out); err != nil {
			fmt.Fprintf(os.Stderr, "stedit: %v\n", err)
			return 1
		}
		defer w.Close()
	}
	if err := st.Dump(w); err != nil {
		fmt.Fprintf(os.Stderr, "stedit: dump: %v\n", err)
		return 1
	}

	if *stats {
		summary, err := buildStats(st, edits)
		if err != nil {
			fmt.Fprintf(os.Stderr, "stedit: %v\n", err)
			return 1
		}
		fmt.Fprintln(os.Stderr, summary)
	}
	return 0
}

// churn runs iters rounds of the delete-5/insert-5 workload marching
// through the document, leaving its size unchanged.
func churn(st *slicetable.SliceTable, iters int, check bool) (int, error) {
	if st.Size() < 40 {
		return 0, fmt.Errorf("document too small for the churn workload (%d bytes)", st.Size())
	}
	edits := 0
	for i := 0; i < iters; i++ {
		pos := (34 + 59*i) % (st.Size() - 5)
		st.Delete(pos, 5)
		st.Insert(pos, []byte("thang"))
		edits += 2
		if check {
			if err := st.Check(); err != nil {
				return edits, fmt.Errorf("iteration %d: %w", i, err)
			}
		}
	}
	return edits, nil
}

// applyScript applies the ops array of a JSON edit script in order.
func applyScript(st *slicetable.SliceTable, path string, check bool) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if !gjson.ValidBytes(raw) {
		return 0, fmt.Errorf("%s: not valid JSON", path)
	}
	edits := 0
	for _, op := range gjson.GetBytes(raw, "ops").Array() {
		pos := int(op.Get("pos").Int())
		if pos < 0 || pos > st.Size() {
			return edits, fmt.Errorf("op %d: position %d out of range", edits, pos)
		}
		switch kind := op.Get("op").String(); kind {
		case "insert":
			st.Insert(pos, []byte(op.Get("text").String()))
		case "delete":
			st.Delete(pos, int(op.Get("len").Int()))
		default:
			return edits, fmt.Errorf("op %d: unknown op %q", edits, kind)
		}
		edits++
		if check {
			if err := st.Check(); err != nil {
				return edits, fmt.Errorf("op %d: %w", edits-1, err)
			}
		}
	}
	return edits, nil
}

// buildStats assembles the JSON stats summary.
func buildStats(st *slicetable.SliceTable, edits int) (string, error) {
	out := "{}"
	var err error
	for _, kv := range []struct {
		key string
		val interface{}
	}{
		{"size", st.Size()},
		{"lines", st.LineCount()},
		{"height", st.Height()},
		{"edits", edits},
	} {
		if out, err = sjson.Set(out, kv.key, kv.val); err != nil {
			return "", err
		}
	}
	return out, nil
}
