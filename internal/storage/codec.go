package storage

import (
	"encoding/json"
	"errors"

	"codevo/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion is the version stamp for records written by this build.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeMeasurements(trace []model.Measurement) ([]byte, error) {
	return json.Marshal(trace)
}

func DecodeMeasurements(data []byte) ([]model.Measurement, error) {
	var trace []model.Measurement
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, err
	}
	return trace, nil
}

func EncodePopulation(population []model.AgentSnapshot) ([]byte, error) {
	return json.Marshal(population)
}

func DecodePopulation(data []byte) ([]model.AgentSnapshot, error) {
	var population []model.AgentSnapshot
	if err := json.Unmarshal(data, &population); err != nil {
		return nil, err
	}
	for _, snap := range population {
		if err := checkVersion(snap.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return population, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
