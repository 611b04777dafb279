package transfer

// 客户端入站事件
const JoinRoom = "join-room"
const StartGame = "start-game"
const TeamsAssigned = "teams-assigned"

// 服务端推送事件
const PlayersUpdate = "players-update" // 房间成员列表
const GameStarted = "game-started"     // 开局
const Connected = "connected"          // 连接建立，只发给本人
const Error = "error"                  // 事件被拒绝，只发给发送者

// 节点间路由（NATS）
const RoomUpdated = "room.updated"
const RoomRemoved = "room.removed"
const RoomStartGame = "room.start-game"

// GameStartedMessage game-started 里固定的提示语
const GameStartedMessage = "Game has started!"
