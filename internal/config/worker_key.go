package config

type WorkerKeyStruct struct {
	RecomputeStatisticsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	RecomputeStatisticsQueue: "recompute_statistics_queue",
}
