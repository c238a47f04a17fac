package config

type WorkerKeyStruct struct {
	SyncRepairQueue string
}

var WorkerKey = &WorkerKeyStruct{
	SyncRepairQueue: "degree_sync_repair_queue",
}
