// Command treekv is a small shell over a treekv database file.
//
// Usage:
//
//	treekv -db data.tkv set 16 big
//	treekv -db data.tkv get 16
//	treekv -db data.tkv min
//	treekv -db data.tkv left 16
//	treekv -db data.tkv right 8
//	treekv -db data.tkv chop 15.5
//	treekv -db data.tkv scan
//
// Keys parse as signed integers first, then floats, then plain strings.
// set commits immediately.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"treekv"
)

func main() {
	var (
		path    = flag.String("db", "", "database file (required)")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Usage = usage
	flag.Parse()

	if *path == "" || flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fatal(err)
		}
		logger = l
	}

	db, err := treekv.Connect(*path, treekv.WithLogger(logger))
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	if err := run(db, flag.Arg(0), flag.Args()[1:]); err != nil {
		fatal(err)
	}
}

func run(db *treekv.DB, cmd string, args []string) error {
	switch cmd {
	case "get":
		if len(args) != 1 {
			return fmt.Errorf("get wants 1 argument, got %d", len(args))
		}
		v, err := db.Get(parseKey(args[0]))
		if err != nil {
			return err
		}
		fmt.Println(string(v))
	case "set":
		if len(args) != 2 {
			return fmt.Errorf("set wants 2 arguments, got %d", len(args))
		}
		if err := db.Set(parseKey(args[0]), []byte(args[1])); err != nil {
			return err
		}
		return db.Commit()
	case "min":
		v, err := db.GetMin()
		if err != nil {
			return err
		}
		fmt.Println(string(v))
	case "left", "right":
		if len(args) != 1 {
			return fmt.Errorf("%s wants 1 argument, got %d", cmd, len(args))
		}
		var (
			e   treekv.Entry
			err error
		)
		if cmd == "left" {
			e, err = db.GetLeft(parseKey(args[0]))
		} else {
			e, err = db.GetRight(parseKey(args[0]))
		}
		if err != nil {
			return err
		}
		printEntry(e)
	case "chop":
		if len(args) != 1 {
			return fmt.Errorf("chop wants 1 argument, got %d", len(args))
		}
		entries, err := db.Chop(parseKey(args[0]))
		if err != nil {
			return err
		}
		for _, e := range entries {
			printEntry(e)
		}
	case "scan":
		entries, err := db.Scan()
		if err != nil {
			return err
		}
		for _, e := range entries {
			printEntry(e)
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// parseKey maps a command-line token onto a typed key.
func parseKey(s string) treekv.Key {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return treekv.Int(i)
	}
	if strings.ContainsAny(s, ".eE") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return treekv.Float(f)
		}
	}
	return treekv.String(s)
}

func printEntry(e treekv.Entry) {
	fmt.Printf("%s\t%s\n", e.Key, string(e.Value))
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: treekv -db <file> [-v] <get|set|min|left|right|chop|scan> [args]\n")
	flag.PrintDefaults()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "treekv:", err)
	os.Exit(1)
}
