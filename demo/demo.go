// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Demo trains a graph-convolution classifier over batches of small synthetic
// graphs, and reports its accuracy on a held-out split.
//
// Run it with the defaults for the usual tutorial setting: 320 training
// graphs, a 2-layer GCN, 800 training steps. Any hyperparameter can be
// overridden with --set, e.g.:
//
//	go run ./demo --set="model=fnn;train_steps=2000"
package main

import (
	"flag"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/gomlx/minigc"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagEval       = flag.Bool("eval", false, "Set to true to only evaluate a previously trained model (requires --checkpoint).")
	flagSample     = flag.Int("sample", 0, "If > 0, only print this many sample graphs from the dataset and exit.")
	flagVerbosity  = flag.Int("verbosity", 1, "Level of verbosity, the higher the more verbose.")
	flagCheckpoint = flag.String("checkpoint", "", "Directory to save and load checkpoints from. If left empty, no checkpoints are created.")
)

func main() {
	ctx := minigc.CreateDefaultContext()
	settings := commandline.CreateContextSettingsFlag(ctx, "")
	klog.InitFlags(nil)
	flag.Parse()
	paramsSet := must.M1(commandline.ParseContextSettings(ctx, *settings))

	if *flagSample > 0 {
		minNodes := context.GetParamOr(ctx, "minigc_min_nodes", 10)
		maxNodes := context.GetParamOr(ctx, "minigc_max_nodes", 20)
		minigc.PrintSample(*flagSample, minNodes, maxNodes)
		return
	}

	err := exceptions.TryCatch[error](func() {
		if *flagEval {
			must.M(minigc.Eval(ctx, *flagCheckpoint, paramsSet))
		} else {
			must.M(minigc.TrainModel(ctx, *flagCheckpoint, paramsSet, true, *flagVerbosity))
		}
	})
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}
