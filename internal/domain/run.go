package domain

// RunState は1回の実行の状態を表す。
type RunState string

const (
	RunStateBootstrapping RunState = "bootstrapping"
	RunStateDiscovering   RunState = "discovering"
	RunStateApplying      RunState = "applying"
	RunStateCompleted     RunState = "completed"
	RunStateFailed        RunState = "failed"
)

// RunReport は実行結果のまとめ。
type RunReport struct {
	RunID   string
	State   RunState
	Applied []string // 適用したファイル名
	Skipped []string // 適用済みのためスキップしたファイル名
	// LastApplied は最後に台帳へ記録したファイル名（再実行時の再開位置の目安）。
	LastApplied string
}
