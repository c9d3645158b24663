package main

import (
	"flag"
	"fmt"
	"kernelc/ast"
	"kernelc/bytecode"
	"kernelc/codegen"
	"kernelc/compiler"
	"kernelc/meta"
	"os"
)

func main() {
	showAST := flag.Bool("ast", true, "Dump the decompiled tree")
	showC := flag.Bool("c", false, "Print the generated function")
	comments := flag.Bool("comments", false, "Keep instruction comments in the generated function")
	all := flag.Bool("all", false, "Dump every compiled (non-alias) method in the manifest")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 || (!*all && len(args) < 2) {
		fmt.Println("Usage: ildump [-ast] [-c] [-all] <manifest.yaml> [Type::Name ...]")
		fmt.Println("Example: ildump -c samples/vector_add.yaml Samples.Kernels::VectorAdd")
		os.Exit(1)
	}

	m, err := meta.LoadManifest(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading manifest %s: %v\n", args[0], err)
		os.Exit(1)
	}
	store, err := meta.NewStoreFrom(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building store: %v\n", err)
		os.Exit(1)
	}

	var methods []*meta.MethodDesc
	if *all {
		for _, md := range store.Methods() {
			if !md.IsAlias() {
				methods = append(methods, md)
			}
		}
	}
	for _, name := range args[1:] {
		md, err := store.MethodByName(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		methods = append(methods, md)
	}

	cc := compiler.New(store)
	gen := codegen.New(codegen.Options{Comments: *comments})
	failed := false
	for _, md := range methods {
		fmt.Printf("Method: %s\n", md.Signature())
		fmt.Printf("Token: 0x%08x  static=%v kernel=%v\n", md.Token, md.Static, md.Kernel)
		fmt.Printf("Code (%d instructions):\n", len(md.Body))
		fmt.Print(bytecode.Disassemble(md.Body))

		res, err := cc.CompileMethod(md)
		if err != nil {
			fmt.Printf("Error: %v\n\n", err)
			failed = true
			continue
		}
		if *showAST {
			fmt.Println("Tree:")
			fmt.Print(ast.Dump(res.Body))
		}
		if *showC {
			fmt.Println("Generated:")
			fmt.Print(gen.Function(res))
		}
		fmt.Println()
	}
	if failed {
		os.Exit(1)
	}
}
