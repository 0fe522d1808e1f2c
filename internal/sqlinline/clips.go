package sqlinline

const QInsertClip = `--sql 30d1725a-7a5d-4880-830c-63f6798baa7b
insert into clips (id, stream_id, playback_id, asset_id, window_start, window_end, phase, download_url, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, $4::timestamptz, $5::timestamptz, $6::text, nullif($7::text, ''), now(), now());
`

const QListClipsByStream = `--sql 917c11cf-609e-43f3-84e5-2ce8251bd36e
select asset_id, playback_id, window_start, window_end, phase, coalesce(download_url, ''), created_at
from clips
where stream_id = $1::text
order by created_at desc
limit $2::int;
`
