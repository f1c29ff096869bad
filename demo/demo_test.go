// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"math/rand"
	"os"
	"sync"
	"testing"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/gomlx/minigc"
	"github.com/gomlx/minigc/gcn"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

var (
	flagSettings *string
	muTrain      sync.Mutex
)

func init() {
	ctx := minigc.CreateDefaultContext()
	flagSettings = commandline.CreateContextSettingsFlag(ctx, "")
	klog.InitFlags(nil)
	if _, found := os.LookupEnv(backends.ConfigEnvVar); !found {
		// For testing, we use the CPU backend (and avoid GPU if not explicitly requested).
		must.M(os.Setenv(backends.ConfigEnvVar, "xla:cpu"))
	}
}

// tinySettings shrinks the dataset and model so a training run takes
// seconds.
func tinySettings() map[string]any {
	return map[string]any{
		"train_steps":         10,
		"batch_size":          8,
		"eval_batch_size":     8,
		"minigc_train_graphs": 32,
		"minigc_test_graphs":  16,
		"minigc_min_nodes":    8,
		"minigc_max_nodes":    12,
		gcn.ParamHiddenDim:    8,
	}
}

func TestDemo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testing in short mode")
		return
	}

	ctx := minigc.CreateDefaultContext()
	ctx.SetParams(tinySettings())
	paramsSet := must.M1(commandline.ParseContextSettings(ctx, *flagSettings))

	muTrain.Lock()
	defer muTrain.Unlock()
	require.NoError(t, minigc.TrainModel(ctx, "", paramsSet, true, 0))

	// The trained context can classify freshly generated graphs.
	backend := backends.MustNew()
	rng := rand.New(rand.NewSource(1))
	samples := minigc.NewSamples(rng, 4, 8, 12)
	classes := must.M1(minigc.Classify(backend, ctx, samples...))
	require.Len(t, classes, 4)
}

func TestDemoEval(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testing in short mode")
		return
	}

	checkpointDir := t.TempDir()
	ctx := minigc.CreateDefaultContext()
	ctx.SetParams(tinySettings())
	paramsSet := must.M1(commandline.ParseContextSettings(ctx, *flagSettings))

	muTrain.Lock()
	defer muTrain.Unlock()
	require.NoError(t, minigc.TrainModel(ctx, checkpointDir, paramsSet, false, 0))

	// Evaluate from the checkpoint in a fresh context. Hyperparameters set
	// in the command line keep their values, they are not overwritten by
	// the checkpointed ones.
	evalCtx := minigc.CreateDefaultContext()
	evalCtx.SetParams(tinySettings())
	evalCtx.SetParam("eval_batch_size", 4)
	require.NoError(t, minigc.Eval(evalCtx, checkpointDir, []string{"eval_batch_size"}))
	require.Equal(t, 4, context.GetParamOr(evalCtx, "eval_batch_size", 0))
}

func TestDemoFnnModel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testing in short mode")
		return
	}

	ctx := minigc.CreateDefaultContext()
	ctx.SetParams(tinySettings())
	ctx.SetParam("model", "fnn")
	paramsSet := must.M1(commandline.ParseContextSettings(ctx, *flagSettings))

	muTrain.Lock()
	defer muTrain.Unlock()
	require.NoError(t, minigc.TrainModel(ctx, "", paramsSet, true, 0))
}
