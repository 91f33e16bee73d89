package shell

var MergeEnv = mergeEnv
