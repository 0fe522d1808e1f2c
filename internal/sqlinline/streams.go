package sqlinline

const QInsertStream = `--sql 46f55049-2892-436c-83b5-ae1c33747f90
insert into streams (id, stream_key, playback_id, playback_url, created_at)
values ($1::text, $2::text, $3::text, $4::text, now());
`

const QSelectStream = `--sql 85e8371f-bf20-4d83-9ca8-df8ee3bd5821
select id, stream_key, playback_id, playback_url, created_at
from streams
where id = $1::text
limit 1;
`
