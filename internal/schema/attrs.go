package schema

// Attribute tables for HTCondor job ads. The lists are curated by hand; names
// keep their canonical casing since document field names are case-sensitive.

// TextAttrs only holds attributes that need full-text search; every other
// string is stored as a keyword.
var TextAttrs = []string{}

var IndexedKeywordAttrs = []string{
	"AccountingGroup",
	"AcctGroup",
	"AcctGroupUser",
	"AssignedGPUs",
	"AutoClusterId",
	"BatchQueue",
	"CloudLabelNames",
	"ConcurrencyLimits",
	"CondorPlatform",
	"CondorVersion",
	"DAGNodeName",
	"DAGParentNodeNames",
	"DockerImage",
	"FileSystemDomain",
	"GLIDEIN_Entry_Name",
	"GlideinClient",
	"GlideinEntryName",
	"GlideinFactory",
	"GlideinFrontendName",
	"GlideinName",
	"GlobalJobId",
	"GridJobId",
	"GridJobStatus",
	"GridResource",
	"JobBatchName",
	"JobDescription",
	"JobKeyword",
	"JobState",
	"KillSig",
	"LastRemoteHost",
	"LastRemotePool",
	"MATCH_EXP_JOBGLIDEIN_ResourceName",
	"MATCH_EXP_JOB_GLIDECLIENT_Name",
	"MATCH_EXP_JOB_GLIDEIN_ClusterId",
	"MATCH_EXP_JOB_GLIDEIN_Entry_Name",
	"MATCH_EXP_JOB_GLIDEIN_Factory",
	"MATCH_EXP_JOB_GLIDEIN_Name",
	"MATCH_EXP_JOB_GLIDEIN_SEs",
	"MATCH_EXP_JOB_GLIDEIN_Schedd",
	"MATCH_EXP_JOB_GLIDEIN_Site",
	"MATCH_EXP_JOB_GLIDEIN_SiteWMS",
	"MATCH_EXP_JOB_GLIDEIN_SiteWMS_JobId",
	"MATCH_EXP_JOB_GLIDEIN_SiteWMS_Queue",
	"MATCH_EXP_JOB_GLIDEIN_SiteWMS_Slot",
	"MyType",
	"NTDomain",
	"OAuthServicesNeeded",
	"Owner",
	"ProjectName",
	"RemoteHost",
	"RemotePool",
	"RemoveKillSig",
	"ScheddName",
	"ShouldTransferFiles",
	"SingularityImage",
	"StartdName",
	"StartdSlot",
	"Status",
	"SubmitterGlobalJobId",
	"SubmitterGroup",
	"SubmitterNegotiatingGroup",
	"TargetType",
	"Universe",
	"User",
	"WhenToTransferOutput",
	"x509UserProxyEmail",
	"x509UserProxyFQAN",
	"x509UserProxyFirstFQAN",
	"x509UserProxySubject",
	"x509UserProxyVOName",
}

var NoIndexKeywordAttrs = []string{
	"AllRemoteHosts",
	"Args",
	"Arguments",
	"Cmd",
	"DAGManNodesLog",
	"DAGManNodesMask",
	"DontEncryptInputFiles",
	"DontEncryptOutputFiles",
	"EncryptInputFiles",
	"EncryptOutputFiles",
	"Err",
	"ExitReason",
	"HoldReason",
	"In",
	"Iwd",
	"JOBGLIDEIN_ResourceName",
	"LastHoldReason",
	"LastRejMatchReason",
	"NotifyUser",
	"OtherJobRemoveRequirements",
	"Out",
	"OutputDestination",
	"PostCmd",
	"PreCmd",
	"PublicInputFiles",
	"ReleaseReason",
	"RemoteIwd",
	"RemoveReason",
	"Requirements",
	"RootDir",
	"StartdIpAddr",
	"StartdPrincipal",
	"StarterIpAddr",
	"StarterPrincipal",
	"SubmitEventNotes",
	"TransferCheckpoint",
	"TransferInput",
	"TransferInputRemaps",
	"TransferIntermediate",
	"TransferOutput",
	"TransferOutputRemaps",
	"TransferPlugins",
	"UserLog",
}

var FloatAttrs = []string{
	"CPUsUsage",
	"JobBatchId",
	"JobDuration",
	"NetworkInputMb",
	"NetworkOutputMb",
	"Rank",
}

var IntAttrs = []string{
	"AutoClusterId",
	"BlockReadKbytes",
	"BlockReads",
	"BlockWriteKbytes",
	"BlockWrites",
	"BufferBlockSize",
	"BufferSize",
	"BytesRecvd",
	"BytesSent",
	"ClusterId",
	"CommittedSlotTime",
	"CommittedSuspensionTime",
	"CommittedTime",
	"CoreSize",
	"CpusProvisioned",
	"CumulativeRemoteSysCpu",
	"CumulativeRemoteUserCpu",
	"CumulativeSlotTime",
	"CumulativeSuspensionTime",
	"CumulativeTransferTime",
	"CurrentHosts",
	"DAGManJobId",
	"DataLocationsCount",
	"DelegatedProxyExpiration",
	"DiskProvisioned",
	"DiskUsage",
	"DiskUsage_RAW",
	"ErrSize",
	"ExecutableSize",
	"ExecutableSize_RAW",
	"ExitCode",
	"ExitSignal",
	"ExitStatus",
	"GpusProvisioned",
	"HoldReasonCode",
	"HoldReasonSubCode",
	"ImageSize",
	"ImageSize_RAW",
	"IOWait",
	"JobLeaseDuration",
	"JobMaxRetries",
	"JobMaxVacateTime",
	"JobPid",
	"JobPrio",
	"JobRunCount",
	"JobStatus",
	"JobSuccessExitCode",
	"JobUniverse",
	"KeepClaimIdle",
	"LastHoldReasonCode",
	"LastHoldReasonSubCode",
	"LastJobStatus",
	"LocalSysCpu",
	"LocalUserCpu",
	"MachineAttrCpus0",
	"MachineAttrSlotWeight0",
	"MATCH_EXP_JOB_GLIDEIN_Job_Max_Time",
	"MATCH_EXP_JOB_GLIDEIN_MaxMemMBs",
	"MATCH_EXP_JOB_GLIDEIN_Max_Walltime",
	"MATCH_EXP_JOB_GLIDEIN_Memory",
	"MATCH_EXP_JOB_GLIDEIN_ProcId",
	"MATCH_EXP_JOB_GLIDEIN_ToDie",
	"MATCH_EXP_JOB_GLIDEIN_ToRetire",
	"MaxHosts",
	"MaxJobRetirementTime",
	"MaxTransferInputMB",
	"MaxTransferOutputMB",
	"MaxWallTimeMins",
	"MaxWallTimeMins_RAW",
	"MemoryProvisioned",
	"MemoryUsage",
	"MinHosts",
	"NextJobStartDelay",
	"NumCkpts",
	"NumCkpts_RAW",
	"NumJobCompletions",
	"NumJobMatches",
	"NumJobReconnects",
	"NumJobStarts",
	"NumPids",
	"NumRestarts",
	"NumShadowExceptions",
	"NumShadowStarts",
	"NumSystemHolds",
	"OrigMaxHosts",
	"OutSize",
	"PilotRestLifeTimeMins",
	"PostCmdExitCode",
	"PostCmdExitSignal",
	"PostJobPrio1",
	"PostJobPrio2",
	"PreCmdExitCode",
	"PreCmdExitSignal",
	"PreJobPrio1",
	"PreJobPrio2",
	"ProcId",
	"ProportionalSetSizeKb",
	"RecentBlockReadKbytes",
	"RecentBlockReads",
	"RecentBlockWriteKbytes",
	"RecentBlockWrites",
	"RecentStatsLifetimeStarter",
	"RemoteSlotID",
	"RemoteSysCpu",
	"RemoteUserCpu",
	"RemoteWallClockTime",
	"RequestCpus",
	"RequestDisk",
	"RequestGpus",
	"RequestMemory",
	"RequestVirtualMemory",
	"ResidentSetSize",
	"ResidentSetSize_RAW",
	"ScratchDirFileCount",
	"StackSize",
	"StatsLifetimeStarter",
	"SuccessCheckpointExitCode",
	"SuccessCheckpointExitSignal",
	"SuccessPostExitCode",
	"SuccessPostExitSignal",
	"SuccessPreExitCode",
	"SuccessPreExitSignal",
	"TotalSubmitProcs",
	"TotalSuspensions",
	"TransferInputSizeMB",
	"WallClockCheckpoint",
	"WindowsBuildNumber",
	"WindowsMajorVersion",
	"WindowsMinorVersion",
}

var DateAttrs = []string{
	"CompletionDate",
	"EnteredCurrentStatus",
	"GLIDEIN_ToDie",
	"GLIDEIN_ToRetire",
	"JobCurrentFinishTransferInputDate",
	"JobCurrentFinishTransferOutputDate",
	"JobCurrentStartDate",
	"JobCurrentStartExecutingDate",
	"JobCurrentStartTransferInputDate",
	"JobCurrentStartTransferOutputDate",
	"JobDisconnectedDate",
	"JobFinishedHookDone",
	"JobLastStartDate",
	"JobLeaseExpiration",
	"JobQueueBirthdate",
	"JobStartDate",
	"LastJobLeaseRenewal",
	"LastMatchTime",
	"LastRejMatchTime",
	"LastRemoteStatusUpdate",
	"LastSuspensionTime",
	"LastVacateTime",
	"LastVacateTime_RAW",
	"MATCH_GLIDEIN_ToDie",
	"MATCH_GLIDEIN_ToRetire",
	"QDate",
	"RecordTime",
	"ShadowBday",
	"StageInFinish",
	"StageInStart",
	"StageOutFinish",
	"StageOutStart",
	"TransferInFinished",
	"TransferInQueued",
	"TransferInStarted",
	"TransferOutFinished",
	"TransferOutQueued",
	"TransferOutStarted",
}

var BoolAttrs = []string{
	"CurrentStatusUnknown",
	"EncryptExecuteDirectory",
	"ExitBySignal",
	"GlobusResubmit",
	"IsNoopJob",
	"JobCoreDumped",
	"LeaveJobInQueue",
	"NiceUser",
	"Nonessential",
	"OnExitHold",
	"OnExitRemove",
	"PeriodicHold",
	"PeriodicRelease",
	"PeriodicRemove",
	"PostCmdExitBySignal",
	"PreCmdExitBySignal",
	"PreserveRelativeExecutable",
	"PreserveRelativePaths",
	"RunAsOwner",
	"SendCredential",
	"SpoolOnEvict",
	"StreamErr",
	"StreamOut",
	"SuccessCheckpointExitBySignal",
	"SuccessPostExitBySignal",
	"SuccessPreExitBySignal",
	"TerminationPending",
	"TransferErr",
	"TransferExecutable",
	"TransferIn",
	"TransferOut",
	"TransferQueued",
	"TransferringInput",
	"TransferringOutput",
	"Use_x509UserProxy",
	"UserLogUseXML",
	"WantAdRevaluate",
	"WantCheckpoint",
	"WantCheckpointSignal",
	"WantClaiming",
	"WantCompletionVisaFromSchedD",
	"WantDelayedUpdates",
	"WantExecutionVisaFromStarter",
	"WantFTOnCheckpoint",
	"WantGracefulRemoval",
	"WantIOProxy",
	"WantMatchDiagnostics",
	"WantMatching",
	"WantParallelScheduling",
	"WantParallelSchedulingGroups",
	"WantPslotPreemption",
	"WantRemoteIO",
	"WantRemoteSyscalls",
	"WantRemoteUpdates",
	"WantResAd",
}

// IgnoreAttrs never reach a document: credentials, environments and other
// noise.
var IgnoreAttrs = []string{
	"BoincAuthenticatorFile",
	"ClaimId",
	"CmdHash",
	"EC2AccessKeyId",
	"EC2KeyPair",
	"EC2KeyPairFile",
	"EC2SecretAccessKey",
	"EC2SecurityGroups",
	"EC2SecurityIDs",
	"EC2UserData",
	"EC2UserDataFile",
	"Env",
	"EnvDelim",
	"Environment",
	"ExecutableSize",
	"GceAuthFile",
	"GceJsonFile",
	"GceMetadataFile",
	"GlideinCredentialIdentifier",
	"GlideinSecurityClass",
	"JobCoreFileName",
	"JobNotification",
	"LastPublicClaimId",
	"PostArgs",
	"PostArguments",
	"PostEnv",
	"PostEnvironment",
	"PreArgs",
	"PreArguments",
	"PreEnv",
	"PreEnvironment",
	"PublicClaimId",
	"ScitokensFile",
	"SpooledOutputFiles",
	"orig_environment",
	"osg_environment",
}

// JobStatus codes to labels.
var StatusLabels = map[int64]string{
	0: "Unexpanded",
	1: "Idle",
	2: "Running",
	3: "Removed",
	4: "Completed",
	5: "Held",
	6: "Error",
}

// JobUniverse codes to labels.
var UniverseLabels = map[int64]string{
	1:  "Standard",
	2:  "Pipe",
	3:  "Linda",
	4:  "PVM",
	5:  "Vanilla",
	6:  "PVMD",
	7:  "Scheduler",
	8:  "MPI",
	9:  "Grid",
	10: "Java",
	11: "Parallel",
	12: "Local",
}
