// Command stagectl runs river-stage predictions from the command line
// against a local model file or a model server.
//
// Usage:
//
//	stagectl predict --model models/flood_model.bin --in observations.csv --out predictions.csv
//	stagectl observe --model-server http://localhost:8501 --datetime "15/06/2021 08:00" \
//	  --rain 1.5 --season "Growing Season" --antecedent-rain 0.5 --condition "AMC I (Dry)" \
//	  --intensity 0.2 --peak-runoff 150 --time-to-peak 6
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
