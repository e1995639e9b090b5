package constants

// 持久化客户端状态的 Key 常量
// 使用统一的命名规范: app:{module}:{entity}
const (
	// AppPrefix 是所有 Key 的统一应用前缀
	AppPrefix = "app"

	// StateModulePrefix 客户端状态模块
	StateModulePrefix = "state"

	// KeyProviderConfig AI 提供方配置 (STRING, JSON)
	// 格式: app:state:provider_config
	KeyProviderConfig = AppPrefix + ":" + StateModulePrefix + ":provider_config"

	// KeyResumeRenderConfig 简历展示配置 (STRING, JSON)
	// 格式: app:state:resume_config
	KeyResumeRenderConfig = AppPrefix + ":" + StateModulePrefix + ":resume_config"

	// KeyJobTitle 最近使用的目标岗位 (STRING)
	KeyJobTitle = AppPrefix + ":" + StateModulePrefix + ":job_title"

	// KeySelectedSnapshot 最近选择的快照文件名 (STRING)
	KeySelectedSnapshot = AppPrefix + ":" + StateModulePrefix + ":selected_file"
)
