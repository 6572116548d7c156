package cmd

import (
	"fmt"

	"github.com/Alonza0314/free-rnc/logger"
	"github.com/Alonza0314/free-rnc/metrics"
	"github.com/Alonza0314/free-rnc/model"
	"github.com/Alonza0314/free-rnc/sim"
	"github.com/Alonza0314/free-rnc/util"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var simCmd = &cobra.Command{
	Use:     "sim",
	Short:   "Run a simulation scenario.",
	Long:    "Run RNCs, NodeBs, the core network and scripted UEs from a scenario file.",
	Example: "free-rnc sim -c config/scenario.yaml",
	Run:     simFunc,
}

func init() {
	simCmd.Flags().StringP("config", "c", "config/scenario.yaml", "scenario file path")
	simCmd.Flags().DurationP("time", "t", 0, "simulated duration, overrides the scenario")
	if err := simCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(simCmd)
}

func simFunc(cmd *cobra.Command, args []string) {
	scenarioFilePath, err := cmd.Flags().GetString("config")
	if err != nil {
		panic(err)
	}
	duration, err := cmd.Flags().GetDuration("time")
	if err != nil {
		panic(err)
	}

	scenario := model.ScenarioConfig{}
	if err := util.LoadFromYaml(scenarioFilePath, &scenario); err != nil {
		panic(err)
	}
	if duration > 0 {
		scenario.Simulation.Duration = duration
	}

	scenario.Logger.ApplyDefaults()
	if err := scenario.Logger.Validate(); err != nil {
		panic(err)
	}
	simLogger := logger.NewSimLogger(scenario.Logger.Level, scenario.Logger.FilePath, scenario.Logger.DebugMode)
	if scenario.Simulation.Duration <= 0 {
		simLogger.CfgLog.Errorf("Simulation duration must be positive, got %v", scenario.Simulation.Duration)
		return
	}

	recorder := metrics.NewPromRecorder(uuid.NewString())
	if scenario.Simulation.MetricsPort > 0 {
		errCh := make(chan error, 1)
		server := metrics.StartMetricsServer(scenario.Simulation.MetricsPort, errCh)
		defer func() {
			if err := server.Close(); err != nil {
				simLogger.SimLog.Warnf("Error closing metrics server: %v", err)
			}
		}()
		go func() {
			for err := range errCh {
				simLogger.SimLog.Errorf("%v", err)
			}
		}()
	}

	simulator, err := sim.NewSimulator(&scenario, &simLogger, recorder)
	if err != nil {
		simLogger.CfgLog.Errorf("%v", err)
		return
	}
	if err := simulator.Start(); err != nil {
		simLogger.SimLog.Errorf("%v", err)
		return
	}
	defer simulator.Stop()

	simLogger.SimLog.Infof("Simulation %s running for %v", recorder.GetSimId(), scenario.Simulation.Duration)
	simulator.Run(scenario.Simulation.Duration)
	fmt.Printf("simulation %s: %d RABs established, %d rejected\n", recorder.GetSimId(),
		simulator.Core().EstablishedRabs(), simulator.Core().RejectedRabs())
}
