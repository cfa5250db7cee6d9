package redis

import "github.com/redis/go-redis/v9"

// Все изменения refresh-записей выполняются Lua-скриптами: запись токена,
// индекс пользователя и zset сроков меняются за один атомарный вызов.
// Ключ индекса пользователя хранится в поле "uk" записи и читается внутри
// скрипта, поэтому скрипты рассчитаны на один инстанс Redis, не на Cluster.

// saveScript: KEYS = token, user, exp; ARGV = hash, username, sid, exp_ms.
var saveScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "u", ARGV[2], "s", ARGV[3], "e", ARGV[4], "uk", KEYS[2])
redis.call("SADD", KEYS[2], ARGV[1])
redis.call("ZADD", KEYS[3], ARGV[4], ARGV[1])
return 1
`)

// rotateScript: KEYS = old token, new token, exp; ARGV = old hash, new hash, exp_ms.
// 0 - старого хэша нет, 1 - заменен, 2 - новый хэш занят.
var rotateScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 2
end
local user_key = redis.call("HGET", KEYS[1], "uk")
redis.call("RENAME", KEYS[1], KEYS[2])
redis.call("HSET", KEYS[2], "e", ARGV[3])
redis.call("SREM", user_key, ARGV[1])
redis.call("SADD", user_key, ARGV[2])
redis.call("ZREM", KEYS[3], ARGV[1])
redis.call("ZADD", KEYS[3], ARGV[3], ARGV[2])
return 1
`)

// deleteScript: KEYS = token, exp; ARGV = hash.
var deleteScript = redis.NewScript(`
local uk = redis.call("HGET", KEYS[1], "uk")
if not uk then
  redis.call("ZREM", KEYS[2], ARGV[1])
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", uk, ARGV[1])
redis.call("ZREM", KEYS[2], ARGV[1])
return 1
`)

// deleteUserScript: KEYS = user, exp; ARGV = token prefix, sid ("" - все сессии).
var deleteUserScript = redis.NewScript(`
local n = 0
for _, h in ipairs(redis.call("SMEMBERS", KEYS[1])) do
  local k = ARGV[1] .. h
  local match = true
  if ARGV[2] ~= "" then
    match = redis.call("HGET", k, "s") == ARGV[2]
  end
  if match then
    n = n + redis.call("DEL", k)
    redis.call("SREM", KEYS[1], h)
    redis.call("ZREM", KEYS[2], h)
  end
end
return n
`)

// sweepScript: KEYS = exp; ARGV = cutoff_ms (исключительно), token prefix.
var sweepScript = redis.NewScript(`
local n = 0
for _, h in ipairs(redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", "(" .. ARGV[1])) do
  local k = ARGV[2] .. h
  local uk = redis.call("HGET", k, "uk")
  if uk then
    redis.call("SREM", uk, h)
    n = n + redis.call("DEL", k)
  end
  redis.call("ZREM", KEYS[1], h)
end
return n
`)
