// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package minigc

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/metrics"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/gomlx/minigc/gcn"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"k8s.io/klog/v2"
)

// ValidModels is the list of model types supported. The user can also
// inject new custom models before calling TrainModel.
var ValidModels = map[string]train.ModelFn{
	"gcn": gcn.ClassifierGraph,
	"fnn": gcn.FnnClassifierGraph,
}

// ParamsExcludedFromLoading is the list of parameters (see
// CreateDefaultContext) that shouldn't be saved along on the models
// checkpoints, and may be overwritten in further training sessions.
var ParamsExcludedFromLoading = []string{
	"train_steps", "num_checkpoints",
}

// CreateDefaultContext sets the context with default hyperparameters to use
// with TrainModel.
func CreateDefaultContext() *context.Context {
	ctx := context.New()
	ctx.ResetRNGState()
	ctx.SetParams(map[string]any{
		// Model type to use, one of the listed in ValidModels.
		"model":           "gcn",
		"train_steps":     800,
		"num_checkpoints": 3,

		// batch_size for training.
		"batch_size": 32,

		// eval_batch_size must divide both the train and test sample counts,
		// since only full batches are yielded.
		"eval_batch_size": 40,

		// Dataset parameters: numbers of graphs to generate for each split,
		// and the half-open range of node counts to draw from.
		"minigc_train_graphs": 320,
		"minigc_test_graphs":  80,
		"minigc_min_nodes":    10,
		"minigc_max_nodes":    20,
		"minigc_seed":         42,

		optimizers.ParamOptimizer:    "adam",
		optimizers.ParamLearningRate: 0.001,

		gcn.ParamNumLayers:       2,
		gcn.ParamHiddenDim:       256,
		gcn.ParamFnnHiddenLayers: 2,
		gcn.ParamFnnHiddenDim:    64,
	})
	return ctx
}

// makeDatasets builds the training dataset (infinite, shuffled) and the
// train/test evaluation datasets (one epoch each) from freshly generated
// samples. Generation is deterministic given the minigc_* context params.
func makeDatasets(ctx *context.Context) (trainDS, trainEvalDS, testEvalDS train.Dataset, err error) {
	batchSize := context.GetParamOr(ctx, "batch_size", 0)
	if batchSize <= 0 {
		return nil, nil, nil, errors.Errorf("batch_size must be > 0 (maybe it was not set?): %d", batchSize)
	}
	evalBatchSize := context.GetParamOr(ctx, "eval_batch_size", 0)
	if evalBatchSize <= 0 {
		evalBatchSize = batchSize
	}
	numTrain := context.GetParamOr(ctx, "minigc_train_graphs", 320)
	numTest := context.GetParamOr(ctx, "minigc_test_graphs", 80)
	minNodes := context.GetParamOr(ctx, "minigc_min_nodes", 10)
	maxNodes := context.GetParamOr(ctx, "minigc_max_nodes", 20)
	seed := context.GetParamOr(ctx, "minigc_seed", 42)
	if evalBatchSize > numTest {
		return nil, nil, nil, errors.Errorf("eval_batch_size=%d is larger than the test split (minigc_test_graphs=%d)",
			evalBatchSize, numTest)
	}

	rng := rand.New(rand.NewSource(int64(seed)))
	trainSamples := NewSamples(rng, numTrain, minNodes, maxNodes)
	testSamples := NewSamples(rng, numTest, minNodes, maxNodes)

	trainDS = NewDataset("train", trainSamples, batchSize, PaddedSpec(batchSize, maxNodes), true, rng)
	evalSpec := PaddedSpec(evalBatchSize, maxNodes)
	trainEvalDS = NewDataset("train-eval", trainSamples, evalBatchSize, evalSpec, false, nil)
	testEvalDS = NewDataset("test-eval", testSamples, evalBatchSize, evalSpec, false, nil)

	// Parallelize generation of batches.
	trainDS = datasets.Parallel(trainDS)
	trainEvalDS = datasets.Parallel(trainEvalDS)
	testEvalDS = datasets.Parallel(testEvalDS)
	return
}

// newTrainer creates the train.Trainer for the model configured in ctx:
// sparse categorical cross-entropy loss over the 8 class logits, with
// accuracy metrics (a moving average during training, the plain mean on
// evaluations).
func newTrainer(backend backends.Backend, ctx *context.Context) (*train.Trainer, error) {
	modelType := context.GetParamOr(ctx, "model", "gcn")
	modelFn, found := ValidModels[modelType]
	if !found {
		return nil, errors.Errorf("parameter \"model\" must take one value from %v, got %q",
			maps.Keys(ValidModels), modelType)
	}
	meanAccuracyMetric := metrics.NewSparseCategoricalAccuracy("Mean Accuracy", "#acc")
	movingAccuracyMetric := metrics.NewMovingAverageSparseCategoricalAccuracy("Moving Average Accuracy", "~acc", 0.01)
	trainer := train.NewTrainer(backend, ctx, modelFn,
		losses.SparseCategoricalCrossEntropyLogits,
		optimizers.FromContext(ctx),
		[]metrics.Interface{movingAccuracyMetric}, // trainMetrics
		[]metrics.Interface{meanAccuracyMetric})   // evalMetrics
	return trainer, nil
}

// TrainModel trains the model configured in ctx and reports its accuracy on
// the train and test splits.
//
// If checkpointPath is not empty, the model (and its hyperparameters, except
// the ones named in paramsSet and ParamsExcludedFromLoading) is periodically
// saved there, and loaded from there on restart.
func TrainModel(ctx *context.Context, checkpointPath string, paramsSet []string, evaluateOnEnd bool, verbosity int) error {
	backend, err := backends.New()
	if err != nil {
		return errors.WithMessage(err, "while creating backend")
	}
	if verbosity >= 1 {
		fmt.Printf("Backend %q:\t%s\n", backend.Name(), backend.Description())
	}

	trainDS, trainEvalDS, testEvalDS, err := makeDatasets(ctx)
	if err != nil {
		return err
	}

	// Checkpoints saving.
	var checkpoint *checkpoints.Handler
	if checkpointPath != "" {
		numCheckpointsToKeep := context.GetParamOr(ctx, "num_checkpoints", 3)
		checkpoint, err = checkpoints.Build(ctx).
			Dir(fsutil.MustReplaceTildeInDir(checkpointPath)).
			Keep(numCheckpointsToKeep).
			ExcludeParams(append(paramsSet, ParamsExcludedFromLoading...)...).
			Done()
		if err != nil {
			return errors.WithMessagef(err, "while setting up checkpoint in %q", checkpointPath)
		}
		if verbosity >= 1 {
			fmt.Printf("Checkpoint: %q\n", checkpoint.Dir())
		}
	}
	if verbosity >= 2 {
		fmt.Println(commandline.SprintContextSettings(ctx))
	}

	ctx = ctx.In("model") // Convention scope used for model creation.
	trainer, err := newTrainer(backend, ctx)
	if err != nil {
		return err
	}

	// Use standard training loop.
	loop := train.NewLoop(trainer)
	if verbosity >= 0 {
		commandline.AttachProgressBar(loop) // Attaches a progress bar to the loop.
	}

	// Checkpoint saving: every 1 minute of training.
	if checkpoint != nil {
		period := time.Minute
		train.PeriodicCallback(loop, period, true, "saving checkpoint", 100,
			func(loop *train.Loop, metrics []*tensors.Tensor) error {
				return checkpoint.Save()
			})
	}

	// Loop for given number of steps.
	numTrainSteps := context.GetParamOr(ctx, "train_steps", 0)
	globalStep := int(optimizers.GetGlobalStep(ctx))
	if globalStep > 0 {
		trainer.SetContext(ctx.Reuse())
	}
	if globalStep < numTrainSteps {
		_, err = loop.RunSteps(trainDS, numTrainSteps-globalStep)
		if err != nil {
			return errors.WithMessage(err, "while running training steps")
		}
		if verbosity >= 1 {
			fmt.Printf("\t[Step %d] median train step: %d microseconds\n",
				loop.LoopStep, loop.MedianTrainStepDuration().Microseconds())
		}
		if checkpoint != nil {
			if err = checkpoint.Save(); err != nil {
				klog.Errorf("Failed to save final checkpoint in %q: %+v", checkpoint.Dir(), err)
			}
		}
	} else {
		fmt.Printf("\t - target train_steps=%d already reached. To train further, set a number additional "+
			"to current global step.\n", numTrainSteps)
	}

	// Finally, print an evaluation on train and test datasets.
	if evaluateOnEnd {
		if verbosity >= 1 {
			fmt.Println()
		}
		err = commandline.ReportEval(trainer, trainEvalDS, testEvalDS)
		if err != nil {
			return errors.WithMessage(err, "while reporting eval")
		}
	}
	return nil
}

// Eval loads a model from checkpointPath and reports its accuracy on the
// train and test splits. Hyperparameters named in paramsSet (set in the
// command line) keep their values instead of being overwritten by the
// checkpointed ones.
func Eval(ctx *context.Context, checkpointPath string, paramsSet []string) error {
	if checkpointPath == "" {
		return errors.Errorf("Eval requires a checkpoint directory to load the model from")
	}
	backend, err := backends.New()
	if err != nil {
		return errors.WithMessage(err, "while creating backend")
	}
	_, err = checkpoints.Build(ctx).
		Dir(fsutil.MustReplaceTildeInDir(checkpointPath)).
		ExcludeParams(append(paramsSet, ParamsExcludedFromLoading...)...).
		Done()
	if err != nil {
		return errors.WithMessagef(err, "while loading checkpoint from %q", checkpointPath)
	}
	fmt.Printf("Model in %q trained for %d steps.\n", checkpointPath, optimizers.GetGlobalStep(ctx))

	_, trainEvalDS, testEvalDS, err := makeDatasets(ctx)
	if err != nil {
		return err
	}
	trainer, err := newTrainer(backend, ctx.In("model"))
	if err != nil {
		return err
	}
	return errors.WithMessage(
		commandline.ReportEval(trainer, trainEvalDS, testEvalDS),
		"while reporting eval")
}
