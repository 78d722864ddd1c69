package config

type WorkerKeyStruct struct {
	PersistItemStatsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistItemStatsQueue: "persist_item_stats_queue",
}
