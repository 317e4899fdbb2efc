package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Params is the flat simulation configuration, keyed by the camelCase names
// used in parameter files.
type Params struct {
	LengthOfInputStrings  int     `json:"lengthOfInputStrings" yaml:"lengthOfInputStrings"`
	LengthOfOutputStrings int     `json:"lengthOfOutputStrings" yaml:"lengthOfOutputStrings"`
	NumInputNeurons       int     `json:"numInputNeurons" yaml:"numInputNeurons"`
	NumOutputNeurons      int     `json:"numOutputNeurons" yaml:"numOutputNeurons"`
	NumHiddenNeurons      int     `json:"numHiddenNeurons" yaml:"numHiddenNeurons"`
	MaxInputStringIndex   int     `json:"maxInputStringIndex" yaml:"maxInputStringIndex"`
	MaxOutputStringIndex  int     `json:"maxOutputStringIndex" yaml:"maxOutputStringIndex"`
	RandomSeed            int64   `json:"randomSeed" yaml:"randomSeed"`
	MaxTransmissions      int     `json:"maxTransmissions" yaml:"maxTransmissions"`
	PopSize               int     `json:"popSize" yaml:"popSize"`
	BottleNeck            int     `json:"bottleNeck" yaml:"bottleNeck"`
	NumberOfEpochs        int     `json:"numberOfEpochs" yaml:"numberOfEpochs"`
	InitWeightSD          float64 `json:"initWeightSD" yaml:"initWeightSD"`
	LearningRate          float64 `json:"learningRate" yaml:"learningRate"`

	Pairing      string `json:"pairing,omitempty" yaml:"pairing,omitempty"`
	Sampler      string `json:"sampler,omitempty" yaml:"sampler,omitempty"`
	Source       string `json:"source,omitempty" yaml:"source,omitempty"`
	MeasureEvery int    `json:"measureEvery,omitempty" yaml:"measureEvery,omitempty"`
	// Activation names a registered unit activation; empty means sigmoid.
	Activation string `json:"activation,omitempty" yaml:"activation,omitempty"`
}

// Scores are the three convergence scalars of a population's code.
type Scores struct {
	Expressivity     float64 `json:"expressivity"`
	Compositionality float64 `json:"compositionality"`
	Stability        float64 `json:"stability"`
}

// Measurement is one point of the convergence trace.
type Measurement struct {
	Transmission int `json:"transmission"`
	Scores
	Learners int `json:"learners"`
}

type RunRecord struct {
	VersionedRecord
	RunID        string `json:"run_id"`
	Params       Params `json:"params"`
	Final        Scores `json:"final"`
	Learners     int    `json:"learners"`
	CreatedAtUTC string `json:"created_at_utc"`
}

// AgentSnapshot stores an agent's weights row-major; the last row of each
// matrix holds the bias weights.
type AgentSnapshot struct {
	VersionedRecord
	Index            int         `json:"index"`
	FirstTimeLearner bool        `json:"first_time_learner"`
	LearningEpisodes int         `json:"learning_episodes"`
	Activation       string      `json:"activation,omitempty"`
	InputToHidden    [][]float64 `json:"input_to_hidden"`
	HiddenToOutput   [][]float64 `json:"hidden_to_output"`
}
