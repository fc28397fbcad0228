package parameters

// Hyperparameters is the full configuration structure for choose_move (§6),
// built on top of the generic Params parser the same way hiveGo layers
// typed model hyperparameters over its raw config string (see
// internal/ai/gomlx/scorer.go's extractParams, which walks a context's
// registered parameters and overwrites them from a Params map).
type Hyperparameters struct {
	NumSimulations int

	// PUCT exploration constant by game phase.
	CPuctEarly, CPuctMid, CPuctLate float32

	// Adaptive c_puct scaling based on leaf-value variance (§9, grounded on
	// original_source/src/mcts/risk_sensitive.rs).
	VarianceMultHigh, VarianceMultLow float32

	// Progressive-widening aggressiveness by phase, in [0, 1]; higher means
	// more of the prior mass is admitted earlier.
	PruneEarly, PruneMid1, PruneMid2, PruneLate float32

	// Rollouts per leaf, selected by estimated leaf quality.
	RolloutStrong, RolloutMedium, RolloutDefault, RolloutWeak int

	// Leaf-evaluation blend weights.
	WeightCNN, WeightRollout, WeightHeuristic, WeightContextual float32

	// Per-phase multiplier on the simulation budget.
	SimMultEarly, SimMultMid, SimMultLate float32

	// Self-play sampling temperature schedule.
	TempInitial, TempFinal       float32
	TempDecayStart, TempDecayEnd int

	// RAVE smoothing strength. It is parsed and stored, but internal/mcts has
	// no RAVE statistics and never reads it, so no value changes the search.
	RaveK float32

	// Root exploration noise.
	DirichletAlpha, DirichletEpsilon float32

	ParallelWorkers int

	// RiskAversion is a supplemented, off-by-default field (SPEC_FULL.md):
	// a value transform grounded on original_source's risk-sensitive value
	// shift, applied on top of the blended leaf value before backup. 0
	// disables it and reproduces the unshifted evaluator.
	RiskAversion float32
}

// DefaultHyperparameters are sane starting values. Per §9's Open Question,
// these are a tuning concern, not a correctness requirement; tests only
// assert the blend is well-formed, not that these specific numbers are
// optimal.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		NumSimulations: 400,

		CPuctEarly: 1.5,
		CPuctMid:   1.25,
		CPuctLate:  1.0,

		VarianceMultHigh: 1.5,
		VarianceMultLow:  0.75,

		PruneEarly: 0.3,
		PruneMid1:  0.5,
		PruneMid2:  0.7,
		PruneLate:  1.0,

		RolloutStrong:  0,
		RolloutMedium:  1,
		RolloutDefault: 2,
		RolloutWeak:    4,

		WeightCNN:        0.7,
		WeightRollout:    0.15,
		WeightHeuristic:  0.1,
		WeightContextual: 0.05,

		SimMultEarly: 1.0,
		SimMultMid:   1.0,
		SimMultLate:  1.5,

		TempInitial:    1.0,
		TempFinal:      0.02,
		TempDecayStart: 4,
		TempDecayEnd:   14,

		RaveK: 0,

		DirichletAlpha:   0.3,
		DirichletEpsilon: 0.25,

		ParallelWorkers: 4,

		RiskAversion: 0,
	}
}

// HyperparametersFromParams overrides DefaultHyperparameters with any keys
// present in params, in the style of Scorer.extractParams: each field is
// looked up by its lower_snake_case name and popped if present.
func HyperparametersFromParams(params Params) (Hyperparameters, error) {
	h := DefaultHyperparameters()
	var err error
	pop := func(key string, dst *float32) {
		if err != nil {
			return
		}
		*dst, err = PopParamOr(params, key, *dst)
	}
	popInt := func(key string, dst *int) {
		if err != nil {
			return
		}
		*dst, err = PopParamOr(params, key, *dst)
	}

	pop("c_puct_early", &h.CPuctEarly)
	pop("c_puct_mid", &h.CPuctMid)
	pop("c_puct_late", &h.CPuctLate)
	pop("variance_mult_high", &h.VarianceMultHigh)
	pop("variance_mult_low", &h.VarianceMultLow)
	pop("prune_early", &h.PruneEarly)
	pop("prune_mid1", &h.PruneMid1)
	pop("prune_mid2", &h.PruneMid2)
	pop("prune_late", &h.PruneLate)
	pop("weight_cnn", &h.WeightCNN)
	pop("weight_rollout", &h.WeightRollout)
	pop("weight_heuristic", &h.WeightHeuristic)
	pop("weight_contextual", &h.WeightContextual)
	pop("sim_mult_early", &h.SimMultEarly)
	pop("sim_mult_mid", &h.SimMultMid)
	pop("sim_mult_late", &h.SimMultLate)
	pop("temp_initial", &h.TempInitial)
	pop("temp_final", &h.TempFinal)
	pop("rave_k", &h.RaveK)
	pop("dirichlet_alpha", &h.DirichletAlpha)
	pop("dirichlet_epsilon", &h.DirichletEpsilon)
	pop("risk_aversion", &h.RiskAversion)

	popInt("num_simulations", &h.NumSimulations)
	popInt("rollout_strong", &h.RolloutStrong)
	popInt("rollout_medium", &h.RolloutMedium)
	popInt("rollout_default", &h.RolloutDefault)
	popInt("rollout_weak", &h.RolloutWeak)
	popInt("temp_decay_start", &h.TempDecayStart)
	popInt("temp_decay_end", &h.TempDecayEnd)
	popInt("parallel_workers", &h.ParallelWorkers)

	return h, err
}

// TrainConfig is the train(config) input structure of §6.
type TrainConfig struct {
	GamesPerGeneration int
	BatchSize          int

	// LearningRate is the single optimizer's learning rate (model.Net has one
	// shared-tower optimizer; see PolicyLossWeight/ValueLossWeight below for
	// how the two network heads are still weighted independently, per §4.7's
	// "λ_p·policy_loss + λ_v·value_loss").
	LearningRate float32

	// PolicyLossWeight, ValueLossWeight are λ_p, λ_v (§4.7): the combined
	// loss is PolicyLossWeight*policy_loss + ValueLossWeight*value_loss.
	// ValueLossWeight/PolicyLossWeight is fed to model.Graph.LossGraph's
	// "value_loss_weight" context hyperparameter.
	PolicyLossWeight float32
	ValueLossWeight  float32

	// TrainStepsPerGeneration is the number of optimizer mini-batch steps run
	// between self-play generations, mirroring cmd/a0trainer's
	// -train_steps flag (flagTrainStepsPerIteration).
	TrainStepsPerGeneration int

	Generations         int
	BenchmarkGames      int
	AcceptanceMargin    float32
	BufferSize          int
	AugmentationEnabled bool
	CheckpointDir       string
}

// DefaultTrainConfig mirrors cmd/a0trainer's flag defaults in shape, scaled
// to this engine's much smaller per-game sample count (19 decisions/game
// versus Hive's much longer games).
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		GamesPerGeneration:      200,
		BatchSize:               256,
		LearningRate:            1e-3,
		PolicyLossWeight:        1.0,
		ValueLossWeight:         1.0,
		TrainStepsPerGeneration: 1000,
		Generations:             50,
		BenchmarkGames:          40,
		AcceptanceMargin:        2.0,
		BufferSize:              20000,
		AugmentationEnabled:     true,
	}
}

// TrainConfigFromParams overrides DefaultTrainConfig from params, in the
// same style as HyperparametersFromParams: the two typed structs are built
// from one shared configuration string (SPEC_FULL.md's ambient
// configuration stack), each popping only the keys it recognizes.
func TrainConfigFromParams(params Params) (TrainConfig, error) {
	c := DefaultTrainConfig()
	var err error
	popInt := func(key string, dst *int) {
		if err != nil {
			return
		}
		*dst, err = PopParamOr(params, key, *dst)
	}
	popFloat := func(key string, dst *float32) {
		if err != nil {
			return
		}
		*dst, err = PopParamOr(params, key, *dst)
	}
	popBool := func(key string, dst *bool) {
		if err != nil {
			return
		}
		*dst, err = PopParamOr(params, key, *dst)
	}
	popString := func(key string, dst *string) {
		if err != nil {
			return
		}
		*dst, err = PopParamOr(params, key, *dst)
	}

	popInt("games_per_generation", &c.GamesPerGeneration)
	popInt("batch_size", &c.BatchSize)
	popFloat("learning_rate", &c.LearningRate)
	popFloat("policy_loss_weight", &c.PolicyLossWeight)
	popFloat("value_loss_weight", &c.ValueLossWeight)
	popInt("train_steps_per_generation", &c.TrainStepsPerGeneration)
	popInt("generations", &c.Generations)
	popInt("benchmark_games", &c.BenchmarkGames)
	popFloat("acceptance_margin", &c.AcceptanceMargin)
	popInt("buffer_size", &c.BufferSize)
	popBool("augmentation_enabled", &c.AugmentationEnabled)
	popString("checkpoint_dir", &c.CheckpointDir)

	return c, err
}
