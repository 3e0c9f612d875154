package main

import (
	"flag"
	"log"
	_ "net/http/pprof" // /debug/pprof on the debug host
)

func main() {
	di := flag.String("di", "dig", "dependency wiring: dig | manual")
	flag.Parse()

	switch *di {
	case "dig":
		startWithDig()
	case "manual":
		startManual()
	default:
		log.Fatalf("unknown wiring %q", *di)
	}
}
